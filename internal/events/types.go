// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	LaunchStarted   EventType = "launch.started"
	LaunchStage     EventType = "launch.stage"
	LaunchCompleted EventType = "launch.completed"
	LaunchFailed    EventType = "launch.failed"
)

// Stage это шаг создания токена.
type Stage string

const (
	StageMintKey  Stage = "mint_key"
	StageMetadata Stage = "metadata"
	StageBuild    Stage = "build"
	StageSubmit   Stage = "submit"
	StageConfirm  Stage = "confirm"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	Launch() string
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
	LaunchID  string
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// Launch returns the id of the launch the event belongs to.
func (e BaseEvent) Launch() string {
	return e.LaunchID
}

func newBase(t EventType, launchID string) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now(), LaunchID: launchID}
}

// LaunchStartedEvent is emitted before any work for a request begins.
type LaunchStartedEvent struct {
	BaseEvent
	Payer       string
	Name        string
	Symbol      string
	FeeLamports uint64
}

func NewLaunchStarted(launchID, payer, name, symbol string, feeLamports uint64) LaunchStartedEvent {
	return LaunchStartedEvent{
		BaseEvent:   newBase(LaunchStarted, launchID),
		Payer:       payer,
		Name:        name,
		Symbol:      symbol,
		FeeLamports: feeLamports,
	}
}

// LaunchStageEvent отмечает завершение одного шага.
type LaunchStageEvent struct {
	BaseEvent
	Stage  Stage
	Detail map[string]string
}

func NewLaunchStage(launchID string, stage Stage, detail map[string]string) LaunchStageEvent {
	return LaunchStageEvent{BaseEvent: newBase(LaunchStage, launchID), Stage: stage, Detail: detail}
}

// LaunchCompletedEvent is emitted once the transaction is confirmed.
type LaunchCompletedEvent struct {
	BaseEvent
	Mint      string
	ATA       string
	Signature string
}

func NewLaunchCompleted(launchID, mint, ata, signature string) LaunchCompletedEvent {
	return LaunchCompletedEvent{
		BaseEvent: newBase(LaunchCompleted, launchID),
		Mint:      mint,
		ATA:       ata,
		Signature: signature,
	}
}

// LaunchFailedEvent несет шаг, на котором произошла ошибка.
type LaunchFailedEvent struct {
	BaseEvent
	Stage Stage
	Error error
}

func NewLaunchFailed(launchID string, stage Stage, err error) LaunchFailedEvent {
	return LaunchFailedEvent{BaseEvent: newBase(LaunchFailed, launchID), Stage: stage, Error: err}
}
