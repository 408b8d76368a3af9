// registry/loader.go
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	logger "github.com/conformd/conformd/logging"
	"github.com/conformd/conformd/model"
)

// standardPack is the on-disk shape of a standard definition file.
type standardPack struct {
	Standard struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Version     string `yaml:"version"`
		Description string `yaml:"description"`
	} `yaml:"standard"`
	Controls []struct {
		ID          string `yaml:"id"`
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		Severity    string `yaml:"severity"`
		Section     string `yaml:"section"`
		Remediation string `yaml:"remediation"`
	} `yaml:"controls"`
}

// LoadDir parses every *.yaml / *.yml standard pack in dir and registers
// the standards it finds. Severity defaults to medium when a control
// omits it.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read standards directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		standard, err := LoadFile(path)
		if err != nil {
			return fmt.Errorf("failed to load standard pack %s: %w", entry.Name(), err)
		}

		if err := r.RegisterStandard(standard); err != nil {
			return fmt.Errorf("failed to register standard %s: %w", standard.ID, err)
		}
		loaded++
		logger.Info("Loaded standard pack",
			zap.String("standardID", standard.ID),
			zap.String("version", standard.Version),
			zap.Int("controls", len(standard.Controls)))
	}

	logger.Info("Standard packs loaded", zap.Int("count", loaded), zap.String("dir", dir))
	return nil
}

// LoadFile parses a single standard pack file.
func LoadFile(path string) (model.Standard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Standard{}, err
	}
	return parsePack(data)
}

func parsePack(data []byte) (model.Standard, error) {
	var pack standardPack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return model.Standard{}, fmt.Errorf("failed to parse standard pack: %w", err)
	}

	if pack.Standard.ID == "" {
		return model.Standard{}, fmt.Errorf("standard pack is missing standard.id")
	}

	now := time.Now()
	standard := model.Standard{
		ID:          pack.Standard.ID,
		Name:        pack.Standard.Name,
		Version:     pack.Standard.Version,
		Description: pack.Standard.Description,
		Revision:    1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, c := range pack.Controls {
		if c.ID == "" {
			return model.Standard{}, fmt.Errorf("standard %s has a control with no id", standard.ID)
		}
		severity := c.Severity
		if severity == "" {
			severity = "medium"
		}
		standard.Controls = append(standard.Controls, model.Control{
			ID:          c.ID,
			StandardID:  standard.ID,
			Title:       c.Title,
			Description: c.Description,
			Severity:    severity,
			Section:     c.Section,
			Remediation: c.Remediation,
		})
	}

	return standard, nil
}

// ParseProfile parses an evaluation profile: an ordered list of control
// identifiers, optionally with literal snapshot attributes.
func ParseProfile(data []byte) (model.EvaluationRequest, error) {
	var request model.EvaluationRequest
	if err := yaml.Unmarshal(data, &request); err != nil {
		return model.EvaluationRequest{}, fmt.Errorf("failed to parse evaluation profile: %w", err)
	}
	if len(request.Identifiers) == 0 {
		return model.EvaluationRequest{}, fmt.Errorf("evaluation profile lists no identifiers")
	}
	return request, nil
}
