package kafka

// Logical streams of the event log. All three are partitioned by
// transaction id.
const (
	TopicCommands    = "txn.commands"
	TopicEvents      = "txn.events"
	TopicDeadLetters = "txn.dlq"
)
