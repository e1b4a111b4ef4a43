package reactions

// Batch is the single digest produced by a run.
type Batch struct {
	Records []NewReaction
}

// Assemble groups the records of a run into one batch. It returns nil when
// there is nothing to notify, so a notifier is never handed an empty digest.
func Assemble(records []NewReaction) *Batch {
	if len(records) == 0 {
		return nil
	}
	out := make([]NewReaction, len(records))
	copy(out, records)
	return &Batch{Records: out}
}

// Len returns the number of records in the batch.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Records)
}
