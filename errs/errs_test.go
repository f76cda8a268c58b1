package errs

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	err := errors.Wrapf(Range("view %d", 3), "accessor %d", 1)

	assert.True(t, Is(err, DataRange))
	assert.False(t, Is(err, Topology))
	assert.Contains(t, err.Error(), "accessor 1: data range: view 3")
}

func TestKindOfForeign(t *testing.T) {
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.Equal(t, Unknown, KindOf(nil))
	assert.Equal(t, "topology inconsistency", Topology.String())
}
