package core

// Operation identifies what happened to a table, or to the transaction
// scope as a whole.
type Operation string

const (
	OpInsert   Operation = "insert"
	OpUpdate   Operation = "update"
	OpDelete   Operation = "delete"
	OpCommit   Operation = "commit"
	OpRollback Operation = "rollback"
)

// TransactionScope is the pseudo-table name used for transaction lifecycle
// topics, mirroring the "transaction:commit" / "transaction:rollback" wire
// form of the topic.
const TransactionScope = "transaction"

// Topic keys event delivery. Using a structured value instead of a freeform
// string keeps subscriber enumeration deterministic and testable.
type Topic struct {
	Table string
	Op    Operation
}

// String renders the canonical "<table>:<operation>" form.
func (t Topic) String() string { return t.Table + ":" + string(t.Op) }

// TopicCommit and TopicRollback are the transaction lifecycle topics.
var (
	TopicCommit   = Topic{Table: TransactionScope, Op: OpCommit}
	TopicRollback = Topic{Table: TransactionScope, Op: OpRollback}
)

// Event is what subscribers receive. Payload carries the affected row data
// for table operations and is nil for transaction lifecycle events.
type Event struct {
	Topic   Topic
	Payload Row
}
