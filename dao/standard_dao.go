// dao/standard_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/conformd/conformd/audit"
	conformd_errors "github.com/conformd/conformd/errors"
	logger "github.com/conformd/conformd/logging"
	"github.com/conformd/conformd/model"
)

type StandardDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewStandardDAO(driver neo4j.Driver, auditService audit.Service) *StandardDAO {
	dao := &StandardDAO{Driver: driver, AuditService: auditService}
	// Ensure unique constraints on Standard and Control IDs
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraints(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraints", zap.Error(err))
	}
	return dao
}

// EnsureUniqueConstraints ensures unique constraints on Standard and Control IDs
func (dao *StandardDAO) EnsureUniqueConstraints(ctx context.Context) error {
	logger.Info("Ensuring unique constraints on Standard and Control IDs")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("Failed to close Neo4j session", zap.Error(err))
		}
	}()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		queries := []string{
			`CREATE CONSTRAINT unique_standard_id IF NOT EXISTS
             FOR (s:STANDARD) REQUIRE s.id IS UNIQUE`,
			`CREATE CONSTRAINT unique_control_id IF NOT EXISTS
             FOR (c:CONTROL) REQUIRE c.id IS UNIQUE`,
		}
		for _, query := range queries {
			if _, err := transaction.Run(query, nil); err != nil {
				logger.Error("Failed to create unique constraint", zap.Error(err))
				return nil, fmt.Errorf("failed to create unique constraint: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to ensure unique constraints", zap.Error(err))
		return err
	}

	logger.Info("Successfully ensured unique constraints on Standard and Control IDs")
	return nil
}

// CreateStandard creates a standard node plus one CONTROL node per control
func (dao *StandardDAO) CreateStandard(ctx context.Context, standard model.Standard, actorID string) (string, error) {
	start := time.Now()
	logger.Info("Creating new standard", zap.String("standardName", standard.Name))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if standard.ID == "" {
		standard.ID = uuid.New().String()
	}

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		// First, check if the standard already exists
		checkQuery := `
        MATCH (s:STANDARD {id: $id})
        RETURN s.id
        `
		checkResult, err := transaction.Run(checkQuery, map[string]interface{}{"id": standard.ID})
		if err != nil {
			return nil, conformd_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, conformd_errors.ErrStandardConflict
		}

		createQuery := `
        MERGE (s:STANDARD {id: $id})
        ON CREATE SET s += $props
        RETURN s.id as id
        `
		parameters := map[string]interface{}{
			"id": standard.ID,
			"props": map[string]interface{}{
				"name":        standard.Name,
				"version":     standard.Version,
				"description": standard.Description,
				"revision":    standard.Revision,
				"createdAt":   time.Now().Format(time.RFC3339),
				"updatedAt":   time.Now().Format(time.RFC3339),
			},
		}
		if _, err := transaction.Run(createQuery, parameters); err != nil {
			return nil, conformd_errors.ErrDatabaseOperation
		}

		controlQuery := `
        MATCH (s:STANDARD {id: $standardId})
        MERGE (c:CONTROL {id: $id})
        ON CREATE SET c += $props
        MERGE (c)-[:BELONGS_TO]->(s)
        `
		for _, control := range standard.Controls {
			parameters := map[string]interface{}{
				"standardId": standard.ID,
				"id":         control.ID,
				"props": map[string]interface{}{
					"standardId":  standard.ID,
					"title":       control.Title,
					"description": control.Description,
					"severity":    control.Severity,
					"section":     control.Section,
					"remediation": control.Remediation,
				},
			}
			if _, err := transaction.Run(controlQuery, parameters); err != nil {
				return nil, conformd_errors.ErrDatabaseOperation
			}
		}

		return standard.ID, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create standard",
			zap.Error(err),
			zap.String("standardID", standard.ID),
			zap.Duration("duration", duration))
		return "", err
	}

	logger.Info("Standard created successfully",
		zap.String("standardID", standard.ID),
		zap.Int("controls", len(standard.Controls)),
		zap.Duration("duration", duration))

	// Audit trail
	entry := audit.Entry{
		Timestamp:    time.Now(),
		ActorID:      actorID,
		Action:       "standard.created",
		TargetID:     standard.ID,
		ControlCount: len(standard.Controls),
	}
	if err := dao.AuditService.LogEvent(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return result.(string), nil
}

// UpdateStandard replaces a standard's scalar properties and controls
func (dao *StandardDAO) UpdateStandard(ctx context.Context, standard model.Standard, actorID string) (*model.Standard, error) {
	start := time.Now()
	logger.Info("Updating standard", zap.String("standardID", standard.ID))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	oldStandard, err := dao.GetStandard(ctx, standard.ID)
	if err != nil {
		return nil, err
	}

	_, err = session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		updateQuery := `
        MATCH (s:STANDARD {id: $id})
        SET s += $props
        RETURN s.id as id
        `
		parameters := map[string]interface{}{
			"id": standard.ID,
			"props": map[string]interface{}{
				"name":        standard.Name,
				"version":     standard.Version,
				"description": standard.Description,
				"revision":    standard.Revision,
				"updatedAt":   time.Now().Format(time.RFC3339),
			},
		}
		result, err := transaction.Run(updateQuery, parameters)
		if err != nil {
			return nil, conformd_errors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, conformd_errors.ErrStandardNotFound
		}

		// Drop and recreate the control set
		deleteQuery := `
        MATCH (c:CONTROL)-[:BELONGS_TO]->(s:STANDARD {id: $id})
        DETACH DELETE c
        `
		if _, err := transaction.Run(deleteQuery, map[string]interface{}{"id": standard.ID}); err != nil {
			return nil, conformd_errors.ErrDatabaseOperation
		}

		controlQuery := `
        MATCH (s:STANDARD {id: $standardId})
        MERGE (c:CONTROL {id: $id})
        ON CREATE SET c += $props
        ON MATCH SET c += $props
        MERGE (c)-[:BELONGS_TO]->(s)
        `
		for _, control := range standard.Controls {
			parameters := map[string]interface{}{
				"standardId": standard.ID,
				"id":         control.ID,
				"props": map[string]interface{}{
					"standardId":  standard.ID,
					"title":       control.Title,
					"description": control.Description,
					"severity":    control.Severity,
					"section":     control.Section,
					"remediation": control.Remediation,
				},
			}
			if _, err := transaction.Run(controlQuery, parameters); err != nil {
				return nil, conformd_errors.ErrDatabaseOperation
			}
		}

		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to update standard",
			zap.Error(err),
			zap.String("standardID", standard.ID),
			zap.Duration("duration", duration))
		return nil, err
	}

	updatedStandard, err := dao.GetStandard(ctx, standard.ID)
	if err != nil {
		return nil, err
	}

	logger.Info("Standard updated successfully",
		zap.String("standardID", standard.ID),
		zap.Duration("duration", duration))

	// Audit trail
	entry := audit.Entry{
		Timestamp:     time.Now(),
		ActorID:       actorID,
		Action:        "standard.updated",
		TargetID:      standard.ID,
		ControlCount:  len(standard.Controls),
		ChangeDetails: createChangeDetails(oldStandard, updatedStandard),
	}
	if err := dao.AuditService.LogEvent(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return updatedStandard, nil
}

// DeleteStandard deletes a standard and its controls from Neo4j
func (dao *StandardDAO) DeleteStandard(ctx context.Context, standardID string, actorID string) error {
	start := time.Now()
	logger.Info("Deleting standard", zap.String("standardID", standardID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (s:STANDARD {id: $id})
        OPTIONAL MATCH (c:CONTROL)-[:BELONGS_TO]->(s)
        DETACH DELETE s, c
        `
		result, err := transaction.Run(query, map[string]interface{}{"id": standardID})
		if err != nil {
			return nil, fmt.Errorf("failed to execute delete query: %w", err)
		}
		summary, err := result.Consume()
		if err != nil {
			return nil, fmt.Errorf("failed to consume delete result: %w", err)
		}
		if summary.Counters().NodesDeleted() == 0 {
			return nil, conformd_errors.ErrStandardNotFound
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to delete standard",
			zap.Error(err),
			zap.String("standardID", standardID),
			zap.Duration("duration", duration))
		return err
	}

	logger.Info("Standard deleted successfully",
		zap.String("standardID", standardID),
		zap.Duration("duration", duration))

	// Audit trail
	entry := audit.Entry{
		Timestamp: time.Now(),
		ActorID:   actorID,
		Action:    "standard.deleted",
		TargetID:  standardID,
	}
	if err := dao.AuditService.LogEvent(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return nil
}

// GetStandard retrieves a standard and its controls from Neo4j
func (dao *StandardDAO) GetStandard(ctx context.Context, standardID string) (*model.Standard, error) {
	start := time.Now()
	logger.Info("Retrieving standard", zap.String("standardID", standardID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (s:STANDARD {id: $id})
    OPTIONAL MATCH (c:CONTROL)-[:BELONGS_TO]->(s)
    RETURN s, collect(c) as controls
    `
	result, err := session.Run(query, map[string]interface{}{"id": standardID})
	if err != nil {
		logger.Error("Failed to execute get standard query",
			zap.Error(err),
			zap.String("standardID", standardID),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to execute get standard query: %w", err)
	}

	if result.Next() {
		record := result.Record()
		node := record.Values[0].(neo4j.Node)
		standard, err := mapNodeToStandard(node)
		if err != nil {
			logger.Error("Failed to map standard node to struct",
				zap.Error(err),
				zap.String("standardID", standardID),
				zap.Duration("duration", time.Since(start)))
			return nil, fmt.Errorf("failed to map standard node to struct: %w", err)
		}

		if controlNodes, ok := record.Values[1].([]interface{}); ok {
			for _, value := range controlNodes {
				controlNode, ok := value.(neo4j.Node)
				if !ok {
					continue
				}
				control, err := mapNodeToControl(controlNode)
				if err != nil {
					return nil, fmt.Errorf("failed to map control node to struct: %w", err)
				}
				standard.Controls = append(standard.Controls, *control)
			}
		}

		logger.Info("Standard retrieved successfully",
			zap.String("standardID", standardID),
			zap.Duration("duration", time.Since(start)))
		return standard, nil
	}

	logger.Warn("Standard not found",
		zap.String("standardID", standardID),
		zap.Duration("duration", time.Since(start)))
	return nil, conformd_errors.ErrStandardNotFound
}

// ListStandards retrieves all standards from Neo4j with pagination
func (dao *StandardDAO) ListStandards(ctx context.Context, limit int, offset int) ([]*model.Standard, error) {
	start := time.Now()
	logger.Info("Listing standards", zap.Int("limit", limit), zap.Int("offset", offset))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (s:STANDARD)
    RETURN s
    ORDER BY s.id
    SKIP $offset
    LIMIT $limit
    `
	result, err := session.Run(query, map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	})
	if err != nil {
		logger.Error("Failed to execute list standards query",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to execute list standards query: %w", err)
	}

	var standards []*model.Standard
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		standard, err := mapNodeToStandard(node)
		if err != nil {
			logger.Error("Failed to map standard node to struct",
				zap.Error(err),
				zap.Duration("duration", time.Since(start)))
			return nil, fmt.Errorf("failed to map standard node to struct: %w", err)
		}
		standards = append(standards, standard)
	}

	logger.Info("Standards listed successfully",
		zap.Int("count", len(standards)),
		zap.Duration("duration", time.Since(start)))

	return standards, nil
}

// SearchStandards searches for standards based on given criteria
func (dao *StandardDAO) SearchStandards(ctx context.Context, criteria model.StandardSearchCriteria) ([]*model.Standard, error) {
	start := time.Now()
	logger.Info("Searching standards", zap.Any("criteria", criteria))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	var queryBuilder strings.Builder
	queryBuilder.WriteString("MATCH (s:STANDARD) WHERE 1=1")

	params := make(map[string]interface{})

	if criteria.Name != "" {
		queryBuilder.WriteString(" AND s.name CONTAINS $name")
		params["name"] = criteria.Name
	}

	if criteria.Version != "" {
		queryBuilder.WriteString(" AND s.version = $version")
		params["version"] = criteria.Version
	}

	if !criteria.FromDate.IsZero() {
		queryBuilder.WriteString(" AND s.createdAt >= $fromDate")
		params["fromDate"] = criteria.FromDate.Format(time.RFC3339)
	}

	if !criteria.ToDate.IsZero() {
		queryBuilder.WriteString(" AND s.createdAt <= $toDate")
		params["toDate"] = criteria.ToDate.Format(time.RFC3339)
	}

	queryBuilder.WriteString(" RETURN s ORDER BY s.id")

	if criteria.Limit > 0 {
		queryBuilder.WriteString(" LIMIT $limit")
		params["limit"] = criteria.Limit
	}

	result, err := session.Run(queryBuilder.String(), params)
	if err != nil {
		logger.Error("Failed to execute search standards query",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to execute search standards query: %w", err)
	}

	var standards []*model.Standard
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		standard, err := mapNodeToStandard(node)
		if err != nil {
			return nil, fmt.Errorf("failed to map standard node to struct: %w", err)
		}
		standards = append(standards, standard)
	}

	logger.Info("Standards searched successfully",
		zap.Int("count", len(standards)),
		zap.Duration("duration", time.Since(start)))

	return standards, nil
}

func createChangeDetails(oldStandard, newStandard *model.Standard) json.RawMessage {
	details := map[string]interface{}{
		"old": oldStandard,
		"new": newStandard,
	}
	data, err := json.Marshal(details)
	if err != nil {
		logger.Error("Failed to marshal change details", zap.Error(err))
		return nil
	}
	return data
}

func mapNodeToStandard(node neo4j.Node) (*model.Standard, error) {
	props := node.Props
	standard := &model.Standard{}

	if id, ok := props["id"].(string); ok {
		standard.ID = id
	} else {
		return nil, fmt.Errorf("failed to assert type for standard ID: %v", props["id"])
	}

	if name, ok := props["name"].(string); ok {
		standard.Name = name
	} else {
		return nil, fmt.Errorf("failed to assert type for standard name: %v", props["name"])
	}

	if version, ok := props["version"].(string); ok {
		standard.Version = version
	}

	if description, ok := props["description"].(string); ok {
		standard.Description = description
	}

	if revision, ok := props["revision"].(int64); ok {
		standard.Revision = int(revision)
	}

	if createdAt, ok := props["createdAt"].(string); ok {
		standard.CreatedAt = parseTime(createdAt)
	}

	if updatedAt, ok := props["updatedAt"].(string); ok {
		standard.UpdatedAt = parseTime(updatedAt)
	}

	return standard, nil
}

func mapNodeToControl(node neo4j.Node) (*model.Control, error) {
	props := node.Props
	control := &model.Control{}

	if id, ok := props["id"].(string); ok {
		control.ID = id
	} else {
		return nil, fmt.Errorf("failed to assert type for control ID: %v", props["id"])
	}

	if standardID, ok := props["standardId"].(string); ok {
		control.StandardID = standardID
	}

	if title, ok := props["title"].(string); ok {
		control.Title = title
	}

	if description, ok := props["description"].(string); ok {
		control.Description = description
	}

	if severity, ok := props["severity"].(string); ok {
		control.Severity = severity
	}

	if section, ok := props["section"].(string); ok {
		control.Section = section
	}

	if remediation, ok := props["remediation"].(string); ok {
		control.Remediation = remediation
	}

	return control, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		logger.Warn("Failed to parse time", zap.String("value", s), zap.Error(err))
		return time.Time{}
	}
	return t
}
