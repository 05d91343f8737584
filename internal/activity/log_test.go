package activity

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/simex/internal/domain"
)

func TestLog_RecordEvictsOldest(t *testing.T) {
	l := NewLog(nil, 3)
	for i := 0; i < 5; i++ {
		l.Record(fmt.Sprintf("msg %d", i))
	}

	snap := l.Snapshot()
	require.Len(t, snap.Entries, 3)
	assert.Equal(t, "msg 2", snap.Entries[0].Message)
	assert.Equal(t, "msg 4", snap.Entries[2].Message)
}

func TestLog_Status(t *testing.T) {
	l := NewLog(nil, 0)
	assert.Equal(t, "Not Connected", l.Status(false))
	assert.Equal(t, "Connected", l.Status(true))

	l.Fail(&domain.APIError{Op: "cancel", StatusCode: 404, Message: "order not found"}, domain.LevelCritical)
	assert.Equal(t, "Error", l.Status(true))
	snap := l.Snapshot()
	assert.Equal(t, "order not found", snap.Error)
	assert.Equal(t, domain.LevelCritical, snap.Level)

	l.Clear()
	assert.Equal(t, "Connected", l.Status(true))
}

func TestLog_FailIgnoresNil(t *testing.T) {
	l := NewLog(nil, 0)
	l.Fail(nil, domain.LevelCritical)
	assert.Empty(t, l.Snapshot().Error)

	l.Fail(errors.New("boom"), "")
	assert.Equal(t, "Error", l.Status(false))
}
