// Package language translates human-readable language labels into the
// short codes the execution service expects.
//
// The UI shows labels like "Python" and "JavaScript"; the execution
// service speaks in short codes like "py" and "js". Keeping the mapping
// in one place (and as data, not branches) means adding a language later
// is a one-line table change, not a code change scattered across handlers.
package language

// DefaultShortCode is used for any label the mapper does not recognise.
// The execution service treats it as Python.
const DefaultShortCode = "py"

// Mapper resolves language labels to execution-service short codes.
//
// The zero value is not usable — construct one with Default() or New().
// A Mapper is immutable after construction and safe for concurrent use.
type Mapper struct {
	table map[string]string
}

// defaultTable lists the languages the playground currently offers.
// More runtimes exist on the execution service side but are not exposed
// in the UI yet; extend this table when they are.
var defaultTable = map[string]string{
	"Python":     "py",
	"JavaScript": "js",
}

// Default returns a Mapper with the stock label table.
func Default() *Mapper {
	return New(defaultTable)
}

// New returns a Mapper backed by the given table. The table is copied,
// so the caller may reuse or mutate its own map afterwards.
func New(table map[string]string) *Mapper {
	copied := make(map[string]string, len(table))
	for label, code := range table {
		copied[label] = code
	}
	return &Mapper{table: copied}
}

// Map returns the short code for the given label.
//
// Map is total: unrecognised labels (including the empty string) resolve
// to DefaultShortCode rather than an error, so a stale or missing label
// in the UI can never prevent a run from being dispatched.
func (m *Mapper) Map(label string) string {
	if code, ok := m.table[label]; ok {
		return code
	}
	return DefaultShortCode
}

// Labels returns the labels the mapper recognises. Used by the
// presentation shell to populate the language selector.
func (m *Mapper) Labels() []string {
	labels := make([]string, 0, len(m.table))
	for label := range m.table {
		labels = append(labels, label)
	}
	return labels
}
