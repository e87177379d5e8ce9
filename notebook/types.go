// Package notebook models notebook documents, cells, and their execution
// outputs, and provides the error scan that drives triage. The model is
// deliberately host-agnostic: a document may come from an .ipynb file on
// disk or be fed in by an embedding application.
package notebook

// CellKind distinguishes executable cells from prose.
type CellKind string

const (
	CellCode     CellKind = "code"
	CellMarkdown CellKind = "markdown"
	CellRaw      CellKind = "raw"
)

// OutputTag classifies a single execution output entry.
type OutputTag string

const (
	OutputError         OutputTag = "error"
	OutputStream        OutputTag = "stream"
	OutputDisplayData   OutputTag = "display_data"
	OutputExecuteResult OutputTag = "execute_result"
)

// StderrKey is the data key carrying the diagnostic text of an error output.
const StderrKey = "application/vnd.jupyter.stderr"

// HTMLKey is the data key for HTML-rendered output payloads.
const HTMLKey = "text/html"

// PlainTextKey is the data key for plain-text output payloads.
const PlainTextKey = "text/plain"

// Output is one tagged result entry produced by executing a cell.
type Output struct {
	Tag  OutputTag
	Data map[string]string
}

// Cell is a single executable unit of a document. Cells are owned by their
// Document; triage only observes and decorates them. All mutation and
// listener dispatch happens on the host's event loop, so no locking is done
// here.
type Cell struct {
	id      string
	kind    CellKind
	source  string
	outputs []Output

	outputListeners []func(*Cell)
}

// NewCell creates a cell with a stable identity.
func NewCell(id string, kind CellKind, source string) *Cell {
	return &Cell{id: id, kind: kind, source: source}
}

// ID returns the cell's stable identity.
func (c *Cell) ID() string { return c.id }

// Kind returns the cell kind.
func (c *Cell) Kind() CellKind { return c.kind }

// Source returns the cell's source text.
func (c *Cell) Source() string { return c.source }

// Outputs returns the cell's current output list.
func (c *Cell) Outputs() []Output { return c.outputs }

// SetOutputs replaces the output list and notifies output listeners.
func (c *Cell) SetOutputs(outputs []Output) {
	c.outputs = outputs
	c.notifyOutputs()
}

// AppendOutput adds one output entry and notifies output listeners.
func (c *Cell) AppendOutput(out Output) {
	c.outputs = append(c.outputs, out)
	c.notifyOutputs()
}

// ClearOutputs removes all outputs and notifies output listeners.
func (c *Cell) ClearOutputs() {
	c.outputs = nil
	c.notifyOutputs()
}

// OnOutputsChanged registers a listener invoked after any output mutation.
func (c *Cell) OnOutputsChanged(fn func(*Cell)) {
	c.outputListeners = append(c.outputListeners, fn)
}

func (c *Cell) notifyOutputs() {
	for _, fn := range c.outputListeners {
		fn(c)
	}
}

// Document is an ordered collection of cells with structural change
// notification.
type Document struct {
	id    string
	path  string
	cells []*Cell

	cellListeners []func(*Document)
}

// NewDocument creates a document. Path may be empty for in-memory documents.
func NewDocument(id, path string) *Document {
	return &Document{id: id, path: path}
}

// ID returns the document identity.
func (d *Document) ID() string { return d.id }

// Path returns the backing file path, if any.
func (d *Document) Path() string { return d.path }

// Cells returns the current cell list in order.
func (d *Document) Cells() []*Cell { return d.cells }

// AddCell appends a cell and notifies structural listeners.
func (d *Document) AddCell(c *Cell) {
	d.cells = append(d.cells, c)
	d.notifyCells()
}

// RemoveCell removes the cell with the given ID, if present, and notifies
// structural listeners.
func (d *Document) RemoveCell(id string) {
	for i, c := range d.cells {
		if c.ID() == id {
			d.cells = append(d.cells[:i], d.cells[i+1:]...)
			d.notifyCells()
			return
		}
	}
}

// OnCellsChanged registers a listener invoked after cell insertion/removal.
func (d *Document) OnCellsChanged(fn func(*Document)) {
	d.cellListeners = append(d.cellListeners, fn)
}

func (d *Document) notifyCells() {
	for _, fn := range d.cellListeners {
		fn(d)
	}
}
