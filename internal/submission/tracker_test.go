package submission

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLifecycle(t *testing.T) {
	tr := NewTracker(time.Minute)

	assert.Equal(t, StatusIdle, tr.Get("ana", "req-1").Status)

	tr.Start("ana", "req-1")
	assert.Equal(t, StatusSubmitting, tr.Get("ana", "req-1").Status)

	tr.Finish("ana", "req-1", http.StatusCreated)
	st := tr.Get("ana", "req-1")
	assert.Equal(t, StatusSuccess, st.Status)
	assert.Equal(t, http.StatusCreated, st.HTTPStatus)
	assert.Equal(t, "req-1", st.ID)

	tr.Start("ana", "req-2")
	tr.Finish("ana", "req-2", http.StatusConflict)
	assert.Equal(t, StatusFailed, tr.Get("ana", "req-2").Status)
}

func TestStatesAreScopedToOwner(t *testing.T) {
	tr := NewTracker(time.Minute)
	tr.Start("ana", "form-1")
	tr.Finish("ana", "form-1", http.StatusOK)

	assert.Equal(t, StatusIdle, tr.Get("bruno", "form-1").Status)

	tr.Start("bruno", "form-1")
	tr.Finish("bruno", "form-1", http.StatusUnprocessableEntity)
	assert.Equal(t, StatusSuccess, tr.Get("ana", "form-1").Status)
	assert.Equal(t, StatusFailed, tr.Get("bruno", "form-1").Status)
}

func TestExpiredStatesAreIdle(t *testing.T) {
	tr := NewTracker(20 * time.Millisecond)
	tr.Start("ana", "req-1")

	assert.Eventually(t, func() bool {
		return tr.Get("ana", "req-1").Status == StatusIdle
	}, time.Second, 10*time.Millisecond)
}
