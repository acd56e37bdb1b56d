// Package model defines the data structures shared across the
// application's layers. Plain structs with JSON tags — no behaviour, no
// framework types.
package model

import "time"

// Snippet is a saved playground snapshot: the source code plus the
// language label and stdin it was meant to run with, so reopening a
// snippet restores the whole editor state, not just the text.
//
// Language stores the human-readable label ("Python"), not the execution
// service's short code — the label is what the editor's selector needs,
// and the mapping to a short code happens at run time anyway.
type Snippet struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Language    string    `json:"language"`
	Code        string    `json:"code"`
	InputData   string    `json:"inputData"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
