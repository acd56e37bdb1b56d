package playground

import (
	"github.com/sakif/codeforge/internal/execservice"
	"github.com/sakif/codeforge/internal/language"
)

// BuildRequest assembles an execution-service request from the current
// editor state and stdin.
//
// Pure construction: no validation, never fails. Empty source code is a
// valid request — the service is the authority on what it will and won't
// run. The language label is mapped to its short code here, so the wire
// request never carries a UI label.
func BuildRequest(editor EditorState, input ExecutionInput, mapper *language.Mapper) execservice.RunRequest {
	return execservice.RunRequest{
		SourceCode: editor.SourceCode,
		InputData:  input.Stdin,
		Language:   mapper.Map(editor.SelectedLanguage),
	}
}
