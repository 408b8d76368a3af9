// dao/rule_dao.go
package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/conformd/conformd/audit"
	conformd_errors "github.com/conformd/conformd/errors"
	logger "github.com/conformd/conformd/logging"
	"github.com/conformd/conformd/model"
)

type RuleDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewRuleDAO(driver neo4j.Driver, auditService audit.Service) *RuleDAO {
	dao := &RuleDAO{Driver: driver, AuditService: auditService}
	// Ensure unique constraint on Rule ID
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint", zap.Error(err))
	}
	return dao
}

// EnsureUniqueConstraint ensures the unique constraint on the Rule ID
func (dao *RuleDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraint on Rule ID")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("Failed to close Neo4j session", zap.Error(err))
		}
	}()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_rule_id IF NOT EXISTS
        FOR (r:RULE) REQUIRE r.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		if err != nil {
			logger.Error("Failed to create unique constraint", zap.Error(err))
			return nil, fmt.Errorf("failed to create unique constraint: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to ensure unique constraint on Rule ID", zap.Error(err))
		return err
	}

	logger.Info("Successfully ensured unique constraint on Rule ID")
	return nil
}

// CreateRule creates a rule node and links it to every control it
// satisfies. Every referenced control must already exist.
func (dao *RuleDAO) CreateRule(ctx context.Context, rule model.PolicyRule, actorID string) (string, error) {
	start := time.Now()
	logger.Info("Creating new rule", zap.String("ruleName", rule.Name))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		// First, check if the rule already exists
		checkQuery := `
        MATCH (r:RULE {id: $id})
        RETURN r.id
        `
		checkResult, err := transaction.Run(checkQuery, map[string]interface{}{"id": rule.ID})
		if err != nil {
			return nil, conformd_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, conformd_errors.ErrRuleConflict
		}

		// Every control the rule claims to satisfy must be registered
		for _, controlID := range rule.Controls {
			controlQuery := `
            MATCH (c:CONTROL {id: $id})
            RETURN c.id
            `
			controlResult, err := transaction.Run(controlQuery, map[string]interface{}{"id": controlID})
			if err != nil {
				return nil, conformd_errors.ErrDatabaseOperation
			}
			if !controlResult.Next() {
				return nil, conformd_errors.ErrUnknownIdentifier
			}
		}

		createQuery := `
        MERGE (r:RULE {id: $id})
        ON CREATE SET r += $props
        RETURN r.id as id
        `
		parameters := map[string]interface{}{
			"id": rule.ID,
			"props": map[string]interface{}{
				"name":        rule.Name,
				"description": rule.Description,
				"expression":  rule.Expression,
				"severity":    rule.Severity,
				"active":      rule.Active,
				"revision":    rule.Revision,
				"createdAt":   time.Now().Format(time.RFC3339),
				"updatedAt":   time.Now().Format(time.RFC3339),
			},
		}
		if _, err := transaction.Run(createQuery, parameters); err != nil {
			return nil, conformd_errors.ErrDatabaseOperation
		}

		linkQuery := `
        MATCH (r:RULE {id: $ruleId}), (c:CONTROL {id: $controlId})
        MERGE (r)-[:SATISFIES]->(c)
        `
		for _, controlID := range rule.Controls {
			parameters := map[string]interface{}{
				"ruleId":    rule.ID,
				"controlId": controlID,
			}
			if _, err := transaction.Run(linkQuery, parameters); err != nil {
				return nil, conformd_errors.ErrDatabaseOperation
			}
		}

		return rule.ID, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create rule",
			zap.Error(err),
			zap.String("ruleID", rule.ID),
			zap.Duration("duration", duration))
		return "", err
	}

	logger.Info("Rule created successfully",
		zap.String("ruleID", rule.ID),
		zap.Strings("controls", rule.Controls),
		zap.Duration("duration", duration))

	// Audit trail
	entry := audit.Entry{
		Timestamp:    time.Now(),
		ActorID:      actorID,
		Action:       "rule.created",
		TargetID:     rule.ID,
		ControlCount: len(rule.Controls),
	}
	if err := dao.AuditService.LogEvent(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return result.(string), nil
}

// UpdateRule rewrites a rule node and its SATISFIES relationships
func (dao *RuleDAO) UpdateRule(ctx context.Context, rule model.PolicyRule, actorID string) (*model.PolicyRule, error) {
	start := time.Now()
	logger.Info("Updating rule", zap.String("ruleID", rule.ID))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		for _, controlID := range rule.Controls {
			controlQuery := `
            MATCH (c:CONTROL {id: $id})
            RETURN c.id
            `
			controlResult, err := transaction.Run(controlQuery, map[string]interface{}{"id": controlID})
			if err != nil {
				return nil, conformd_errors.ErrDatabaseOperation
			}
			if !controlResult.Next() {
				return nil, conformd_errors.ErrUnknownIdentifier
			}
		}

		updateQuery := `
        MATCH (r:RULE {id: $id})
        SET r += $props
        RETURN r.id as id
        `
		parameters := map[string]interface{}{
			"id": rule.ID,
			"props": map[string]interface{}{
				"name":        rule.Name,
				"description": rule.Description,
				"expression":  rule.Expression,
				"severity":    rule.Severity,
				"active":      rule.Active,
				"revision":    rule.Revision,
				"updatedAt":   time.Now().Format(time.RFC3339),
			},
		}
		result, err := transaction.Run(updateQuery, parameters)
		if err != nil {
			return nil, conformd_errors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, conformd_errors.ErrRuleNotFound
		}

		unlinkQuery := `
        MATCH (r:RULE {id: $id})-[rel:SATISFIES]->(:CONTROL)
        DELETE rel
        `
		if _, err := transaction.Run(unlinkQuery, map[string]interface{}{"id": rule.ID}); err != nil {
			return nil, conformd_errors.ErrDatabaseOperation
		}

		linkQuery := `
        MATCH (r:RULE {id: $ruleId}), (c:CONTROL {id: $controlId})
        MERGE (r)-[:SATISFIES]->(c)
        `
		for _, controlID := range rule.Controls {
			parameters := map[string]interface{}{
				"ruleId":    rule.ID,
				"controlId": controlID,
			}
			if _, err := transaction.Run(linkQuery, parameters); err != nil {
				return nil, conformd_errors.ErrDatabaseOperation
			}
		}

		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to update rule",
			zap.Error(err),
			zap.String("ruleID", rule.ID),
			zap.Duration("duration", duration))
		return nil, err
	}

	updatedRule, err := dao.GetRule(ctx, rule.ID)
	if err != nil {
		return nil, err
	}

	logger.Info("Rule updated successfully",
		zap.String("ruleID", rule.ID),
		zap.Duration("duration", duration))

	// Audit trail
	entry := audit.Entry{
		Timestamp:    time.Now(),
		ActorID:      actorID,
		Action:       "rule.updated",
		TargetID:     rule.ID,
		ControlCount: len(rule.Controls),
	}
	if err := dao.AuditService.LogEvent(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return updatedRule, nil
}

// DeleteRule deletes a rule from Neo4j
func (dao *RuleDAO) DeleteRule(ctx context.Context, ruleID string, actorID string) error {
	start := time.Now()
	logger.Info("Deleting rule", zap.String("ruleID", ruleID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (r:RULE {id: $id})
        DETACH DELETE r
        `
		result, err := transaction.Run(query, map[string]interface{}{"id": ruleID})
		if err != nil {
			return nil, fmt.Errorf("failed to execute delete query: %w", err)
		}
		summary, err := result.Consume()
		if err != nil {
			return nil, fmt.Errorf("failed to consume delete result: %w", err)
		}
		if summary.Counters().NodesDeleted() == 0 {
			return nil, conformd_errors.ErrRuleNotFound
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to delete rule",
			zap.Error(err),
			zap.String("ruleID", ruleID),
			zap.Duration("duration", duration))
		return err
	}

	logger.Info("Rule deleted successfully",
		zap.String("ruleID", ruleID),
		zap.Duration("duration", duration))

	// Audit trail
	entry := audit.Entry{
		Timestamp: time.Now(),
		ActorID:   actorID,
		Action:    "rule.deleted",
		TargetID:  ruleID,
	}
	if err := dao.AuditService.LogEvent(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return nil
}

// GetRule retrieves a rule and the controls it satisfies
func (dao *RuleDAO) GetRule(ctx context.Context, ruleID string) (*model.PolicyRule, error) {
	start := time.Now()
	logger.Info("Retrieving rule", zap.String("ruleID", ruleID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (r:RULE {id: $id})
    OPTIONAL MATCH (r)-[:SATISFIES]->(c:CONTROL)
    RETURN r, collect(c.id) as controls
    `
	result, err := session.Run(query, map[string]interface{}{"id": ruleID})
	if err != nil {
		logger.Error("Failed to execute get rule query",
			zap.Error(err),
			zap.String("ruleID", ruleID),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to execute get rule query: %w", err)
	}

	if result.Next() {
		record := result.Record()
		node := record.Values[0].(neo4j.Node)
		rule, err := mapNodeToRule(node)
		if err != nil {
			logger.Error("Failed to map rule node to struct",
				zap.Error(err),
				zap.String("ruleID", ruleID),
				zap.Duration("duration", time.Since(start)))
			return nil, fmt.Errorf("failed to map rule node to struct: %w", err)
		}

		if controlIDs, ok := record.Values[1].([]interface{}); ok {
			for _, value := range controlIDs {
				if controlID, ok := value.(string); ok {
					rule.Controls = append(rule.Controls, controlID)
				}
			}
		}

		logger.Info("Rule retrieved successfully",
			zap.String("ruleID", ruleID),
			zap.Duration("duration", time.Since(start)))
		return rule, nil
	}

	logger.Warn("Rule not found",
		zap.String("ruleID", ruleID),
		zap.Duration("duration", time.Since(start)))
	return nil, conformd_errors.ErrRuleNotFound
}

// ListRules retrieves all rules from Neo4j with pagination
func (dao *RuleDAO) ListRules(ctx context.Context, limit int, offset int) ([]*model.PolicyRule, error) {
	start := time.Now()
	logger.Info("Listing rules", zap.Int("limit", limit), zap.Int("offset", offset))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (r:RULE)
    OPTIONAL MATCH (r)-[:SATISFIES]->(c:CONTROL)
    RETURN r, collect(c.id) as controls
    ORDER BY r.id
    SKIP $offset
    LIMIT $limit
    `
	result, err := session.Run(query, map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	})
	if err != nil {
		logger.Error("Failed to execute list rules query",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to execute list rules query: %w", err)
	}

	var rules []*model.PolicyRule
	for result.Next() {
		record := result.Record()
		node := record.Values[0].(neo4j.Node)
		rule, err := mapNodeToRule(node)
		if err != nil {
			logger.Error("Failed to map rule node to struct",
				zap.Error(err),
				zap.Duration("duration", time.Since(start)))
			return nil, fmt.Errorf("failed to map rule node to struct: %w", err)
		}
		if controlIDs, ok := record.Values[1].([]interface{}); ok {
			for _, value := range controlIDs {
				if controlID, ok := value.(string); ok {
					rule.Controls = append(rule.Controls, controlID)
				}
			}
		}
		rules = append(rules, rule)
	}

	logger.Info("Rules listed successfully",
		zap.Int("count", len(rules)),
		zap.Duration("duration", time.Since(start)))

	return rules, nil
}

// GetRulesForControl retrieves the rules bound to one control identifier
func (dao *RuleDAO) GetRulesForControl(ctx context.Context, controlID string) ([]*model.PolicyRule, error) {
	start := time.Now()
	logger.Info("Retrieving rules for control", zap.String("controlID", controlID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (r:RULE)-[:SATISFIES]->(c:CONTROL {id: $id})
    OPTIONAL MATCH (r)-[:SATISFIES]->(other:CONTROL)
    RETURN r, collect(other.id) as controls
    ORDER BY r.id
    `
	result, err := session.Run(query, map[string]interface{}{"id": controlID})
	if err != nil {
		logger.Error("Failed to execute get rules for control query",
			zap.Error(err),
			zap.String("controlID", controlID),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to execute get rules for control query: %w", err)
	}

	var rules []*model.PolicyRule
	for result.Next() {
		record := result.Record()
		node := record.Values[0].(neo4j.Node)
		rule, err := mapNodeToRule(node)
		if err != nil {
			return nil, fmt.Errorf("failed to map rule node to struct: %w", err)
		}
		if controlIDs, ok := record.Values[1].([]interface{}); ok {
			for _, value := range controlIDs {
				if id, ok := value.(string); ok {
					rule.Controls = append(rule.Controls, id)
				}
			}
		}
		rules = append(rules, rule)
	}

	logger.Info("Rules for control retrieved successfully",
		zap.String("controlID", controlID),
		zap.Int("count", len(rules)),
		zap.Duration("duration", time.Since(start)))

	return rules, nil
}

func mapNodeToRule(node neo4j.Node) (*model.PolicyRule, error) {
	props := node.Props
	rule := &model.PolicyRule{}

	if id, ok := props["id"].(string); ok {
		rule.ID = id
	} else {
		return nil, fmt.Errorf("failed to assert type for rule ID: %v", props["id"])
	}

	if name, ok := props["name"].(string); ok {
		rule.Name = name
	} else {
		return nil, fmt.Errorf("failed to assert type for rule name: %v", props["name"])
	}

	if description, ok := props["description"].(string); ok {
		rule.Description = description
	}

	if expression, ok := props["expression"].(string); ok {
		rule.Expression = expression
	} else {
		return nil, fmt.Errorf("failed to assert type for rule expression: %v", props["expression"])
	}

	if severity, ok := props["severity"].(string); ok {
		rule.Severity = severity
	}

	if active, ok := props["active"].(bool); ok {
		rule.Active = active
	}

	if revision, ok := props["revision"].(int64); ok {
		rule.Revision = int(revision)
	}

	if createdAt, ok := props["createdAt"].(string); ok {
		rule.CreatedAt = parseTime(createdAt)
	}

	if updatedAt, ok := props["updatedAt"].(string); ok {
		rule.UpdatedAt = parseTime(updatedAt)
	}

	return rule, nil
}
