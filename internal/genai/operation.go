package genai

// Operation is the state of an asynchronous video job as reported by the
// backend. It is one of OperationPending, OperationDone or OperationFailed.
type Operation interface {
	OperationID() string
	isOperation()
}

type OperationPending struct {
	ID string
}

type OperationDone struct {
	ID        string
	ResultURL string
}

type OperationFailed struct {
	ID     string
	Reason string
}

func (o OperationPending) OperationID() string { return o.ID }
func (o OperationDone) OperationID() string    { return o.ID }
func (o OperationFailed) OperationID() string  { return o.ID }

func (OperationPending) isOperation() {}
func (OperationDone) isOperation()    {}
func (OperationFailed) isOperation()  {}
