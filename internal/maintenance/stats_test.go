package maintenance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStats_SnapshotAndReset(t *testing.T) {
	var s Stats
	s.AddFrame()
	s.AddFrame()
	s.AddRecord()
	s.AddSinkError()

	frames, records, errs := s.snapshotAndReset()
	assert.EqualValues(t, 2, frames)
	assert.EqualValues(t, 1, records)
	assert.EqualValues(t, 1, errs)

	frames, records, errs = s.snapshotAndReset()
	assert.Zero(t, frames)
	assert.Zero(t, records)
	assert.Zero(t, errs)
}
