package job

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"pixscale/models"
)

// Plan is the expanded batch as written by --plan
type Plan struct {
	CreatedAt time.Time              `json:"created_at"`
	Layout    Layout                 `json:"layout"`
	BaseSize  int                    `json:"base_size"`
	Scales    []models.ScaleEntry    `json:"scales"`
	Jobs      []models.JobDescriptor `json:"jobs"`
}

// WritePlan writes the plan as indented JSON to path
func WritePlan(path string, plan Plan) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create plan file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(plan); err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	return nil
}

// ReadPlan reads a plan written by WritePlan
func ReadPlan(path string) (Plan, error) {
	file, err := os.Open(path)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to open plan file: %w", err)
	}
	defer file.Close()

	var plan Plan
	if err := json.NewDecoder(file).Decode(&plan); err != nil {
		return Plan{}, fmt.Errorf("failed to decode plan: %w", err)
	}
	return plan, nil
}
