// Package registry tracks the simulated hospitals known to the deployment.
// Hospitals are in-process participants, so the registry is descriptive: it
// feeds the API's hospital listing and publishes membership-change events
// when its backing file is edited while the server runs.
package registry

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/hafsaghannaj/maternal/internal/common"
	"github.com/hafsaghannaj/maternal/internal/events"
	"github.com/hafsaghannaj/maternal/internal/model"
)

type Registry struct {
	eventBus      *events.EventBus
	cronScheduler *cron.Cron
	logger        hclog.Logger
	path          string
	hospitals     map[string]*model.Hospital
}

type registryFile struct {
	Hospitals []*model.Hospital `yaml:"hospitals"`
}

func New(path string, eventBus *events.EventBus, logger hclog.Logger) *Registry {
	return &Registry{
		eventBus:      eventBus,
		cronScheduler: cron.New(cron.WithSeconds()),
		logger:        logger.Named("registry"),
		path:          path,
		hospitals:     make(map[string]*model.Hospital),
	}
}

// Load reads the registry file and replaces the known-hospital set. Without a
// configured file the default simulated cluster is used.
func (r *Registry) Load() (map[string]*model.Hospital, error) {
	hospitals, err := r.readHospitals()
	if err != nil {
		return nil, err
	}
	r.hospitals = hospitals
	return hospitals, nil
}

// Hospitals returns the known hospitals sorted by id.
func (r *Registry) Hospitals() []*model.Hospital {
	hospitals := make([]*model.Hospital, 0, len(r.hospitals))
	for _, h := range r.hospitals {
		hospitals = append(hospitals, h)
	}
	common.SortHospitals(hospitals)
	return hospitals
}

// StartStateChangeNotifier periodically re-reads the registry file and
// publishes a HospitalStateChange event whenever membership differs.
func (r *Registry) StartStateChangeNotifier() {
	r.cronScheduler.AddFunc("@every 5s", r.notifyStateChanges)

	r.cronScheduler.Start()
}

func (r *Registry) StopAllNotifiers() {
	r.cronScheduler.Stop()
}

func (r *Registry) notifyStateChanges() {
	updated, err := r.readHospitals()
	if err != nil {
		r.logger.Error("error reloading hospital registry", "error", err)
		return
	}

	event := common.GetHospitalStateChangeEvent(r.hospitals, updated)
	if (event != events.Event{}) {
		r.eventBus.Publish(event)
	}

	r.hospitals = updated
}

func (r *Registry) readHospitals() (map[string]*model.Hospital, error) {
	if r.path == "" {
		return defaultCluster(), nil
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultCluster(), nil
		}
		return nil, fmt.Errorf("read registry file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse registry file %s: %w", r.path, err)
	}

	hospitals := make(map[string]*model.Hospital, len(file.Hospitals))
	for _, h := range file.Hospitals {
		if h.ID == "" {
			return nil, fmt.Errorf("registry entry without id in %s", r.path)
		}
		hospitals[h.ID] = h
	}
	return hospitals, nil
}

func defaultCluster() map[string]*model.Hospital {
	return map[string]*model.Hospital{
		"h1": {ID: "h1", Name: "St. Catherine General", Region: "north"},
		"h2": {ID: "h2", Name: "Riverside Maternity Center", Region: "east"},
		"h3": {ID: "h3", Name: "Valley Community Hospital", Region: "west"},
	}
}
