package capture

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticSource_EmitReachesSubscribers(t *testing.T) {
	src := NewSyntheticSource[int]()

	var got []int
	unsub, err := src.Subscribe(func(v int) { got = append(got, v) })
	require.NoError(t, err)
	defer unsub()

	src.Emit(1)
	src.Emit(2)
	assert.Equal(t, []int{1, 2}, got)
}

func TestSyntheticSource_UnsubscribeStopsDelivery(t *testing.T) {
	src := NewSyntheticSource[string]()

	var got []string
	unsub, err := src.Subscribe(func(v string) { got = append(got, v) })
	require.NoError(t, err)
	require.Equal(t, 1, src.SubscriberCount())

	unsub()
	// Unsubscribe is idempotent.
	unsub()
	assert.Equal(t, 0, src.SubscriberCount())

	src.Emit("late")
	assert.Empty(t, got)
}

func TestSyntheticSource_MultipleSubscribers(t *testing.T) {
	src := NewSyntheticSource[int]()

	var a, b int
	unsubA, _ := src.Subscribe(func(v int) { a += v })
	unsubB, _ := src.Subscribe(func(v int) { b += v })
	defer unsubA()
	defer unsubB()

	src.Emit(5)
	assert.Equal(t, 5, a)
	assert.Equal(t, 5, b)
}

func TestResource_ReleaseExactlyOnce(t *testing.T) {
	released := 0
	res, err := Acquire("microphone-stream", func() (func() error, error) {
		return func() error {
			released++
			return nil
		}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "microphone-stream", res.Name())

	require.NoError(t, res.Release())
	require.NoError(t, res.Release())
	assert.Equal(t, 1, released)
}

func TestResource_AcquireFailure(t *testing.T) {
	_, err := Acquire("camera-stream", func() (func() error, error) {
		return nil, errors.New("device busy")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "camera-stream")
}
