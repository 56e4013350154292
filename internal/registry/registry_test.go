package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hafsaghannaj/maternal/internal/common"
	"github.com/hafsaghannaj/maternal/internal/events"
)

func writeRegistryFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestRegistry_DefaultClusterWithoutFile(t *testing.T) {
	r := New("", events.NewEventBus(), hclog.NewNullLogger())

	hospitals, err := r.Load()
	require.NoError(t, err)
	require.Len(t, hospitals, 3)

	sorted := r.Hospitals()
	assert.Equal(t, "h1", sorted[0].ID)
	assert.Equal(t, "h2", sorted[1].ID)
	assert.Equal(t, "h3", sorted[2].ID)
	assert.NotEmpty(t, sorted[0].Name)
}

func TestRegistry_MissingFileFallsBackToDefaults(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "absent.yaml"), events.NewEventBus(), hclog.NewNullLogger())

	hospitals, err := r.Load()
	require.NoError(t, err)
	assert.Len(t, hospitals, 3)
}

func TestRegistry_LoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hospitals.yaml")
	writeRegistryFile(t, path, `
hospitals:
  - id: h1
    name: Northgate Obstetrics
    region: north
  - id: h2
    name: Harbor Womens Clinic
    region: south
`)

	r := New(path, events.NewEventBus(), hclog.NewNullLogger())
	hospitals, err := r.Load()
	require.NoError(t, err)
	require.Len(t, hospitals, 2)
	assert.Equal(t, "Northgate Obstetrics", hospitals["h1"].Name)
	assert.Equal(t, "south", hospitals["h2"].Region)
}

func TestRegistry_EntryWithoutIDRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hospitals.yaml")
	writeRegistryFile(t, path, `
hospitals:
  - name: Anonymous Clinic
`)

	r := New(path, events.NewEventBus(), hclog.NewNullLogger())
	_, err := r.Load()
	assert.Error(t, err)
}

func TestRegistry_NotifyPublishesMembershipChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hospitals.yaml")
	writeRegistryFile(t, path, `
hospitals:
  - id: h1
    name: Northgate Obstetrics
`)

	eventBus := events.NewEventBus()
	received := make(chan events.Event, 1)
	eventBus.Subscribe(common.HOSPITAL_STATE_CHANGE_EVENT_TYPE, received)

	r := New(path, eventBus, hclog.NewNullLogger())
	_, err := r.Load()
	require.NoError(t, err)

	writeRegistryFile(t, path, `
hospitals:
  - id: h1
    name: Northgate Obstetrics
  - id: h4
    name: Hillcrest Maternity
`)
	r.notifyStateChanges()

	require.Len(t, received, 1)
	event := <-received
	data, ok := event.Data.(events.HospitalStateChangeEvent)
	require.True(t, ok)
	require.Len(t, data.HospitalsAdded, 1)
	assert.Equal(t, "h4", data.HospitalsAdded[0].ID)
	assert.Empty(t, data.HospitalsRemoved)

	// Unchanged membership publishes nothing.
	r.notifyStateChanges()
	assert.Empty(t, received)
}
