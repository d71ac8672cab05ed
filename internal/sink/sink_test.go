package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjectToken(t *testing.T) {
	assert.Equal(t, "patient-1", subjectToken("patient-1"))
	assert.Equal(t, "unknown", subjectToken(""))
	// NATS subject metacharacters are neutralized.
	assert.Equal(t, "ward-3-bed-7", subjectToken("ward.3 bed*7"))
	assert.Equal(t, "-id", subjectToken(">id"))
}
