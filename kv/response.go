package kv

// Result is the outcome of one operation of a transaction.
type Result struct {
	// Values holds the pairs read by Get or removed by Delete.
	Values []KeyValue
}

// Response contains the result of a transaction execution.
type Response struct {
	// Succeeded indicates whether all conditions held and the operations were applied.
	Succeeded bool
	// Revision is the storage revision after the transaction.
	Revision int64
	// Results contains one entry per operation when Succeeded is true.
	Results []Result
}
