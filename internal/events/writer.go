package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	TaskCreated          = "TASK_CREATED"
	StatusChange         = "STATUS_CHANGE"
	TaskUpdated          = "TASK_UPDATED"
	TaskReassigned       = "TASK_REASSIGNED"
	WorkLogged           = "WORK_LOGGED"
	DecisionCreated      = "DECISION_CREATED"
	DecisionUpdated      = "DECISION_UPDATED"
	AIGeneration         = "AI_GENERATION"
	UserCreated          = "USER_CREATED"
	UserStatusChanged    = "USER_STATUS_CHANGED"
	UserExit             = "USER_EXIT"
	ProjectCreated       = "PROJECT_CREATED"
	ProjectStatusChanged = "PROJECT_STATUS_CHANGED"
	MemberAdded          = "MEMBER_ADDED"
	MilestoneCreated     = "MILESTONE_CREATED"
)

// Writer appends audit events. Events are only ever written inside the
// transaction of the mutation they describe.
type Writer struct {
	Now func() time.Time
}

type EventPayload map[string]any

type Event struct {
	Type        string
	Description string
	ProjectID   string
	EntityKind  string
	EntityID    string
	ActorID     string
	Payload     EventPayload
}

func (w Writer) Append(ctx context.Context, tx *sqlx.Tx, evt Event) error {
	if tx == nil {
		return fmt.Errorf("append %s: transaction required", evt.Type)
	}
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	payload := evt.Payload
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,description,project_id,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?,?)`,
		ts, evt.Type, evt.Description, nullable(evt.ProjectID), evt.EntityKind, nullable(evt.EntityID), nullable(evt.ActorID), string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
