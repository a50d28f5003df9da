package models

import "time"

// CommandState is a command's position in the dispatch/confirmation
// lifecycle.
type CommandState string

const (
	CommandNew        CommandState = "new"
	CommandDispatched CommandState = "dispatched"
	CommandReceived   CommandState = "received"
	CommandCompleted  CommandState = "completed"
	CommandFailed     CommandState = "failed"
)

// IsValid reports whether s is a known command state.
func (s CommandState) IsValid() bool {
	switch s {
	case CommandNew, CommandDispatched, CommandReceived, CommandCompleted, CommandFailed:
		return true
	default:
		return false
	}
}

// Command is one instance of a vessel action: issued by an operator or
// reported by vessel firmware, tracked through dispatch and confirmation.
type Command struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	FlightID        string     `gorm:"index:idx_command_lookup,priority:1;size:36;not null" json:"flight_id"`
	CommandType     string     `gorm:"index:idx_command_lookup,priority:3;size:100" json:"command_type"`
	PartID          *string    `gorm:"index:idx_command_lookup,priority:2;size:36" json:"part_id,omitempty"`
	CreateTime      time.Time  `json:"create_time"`
	DispatchTime    *time.Time `json:"dispatch_time,omitempty"`
	ReceiveTime     *time.Time `json:"receive_time,omitempty"`
	CompleteTime    *time.Time `json:"complete_time,omitempty"`
	State           string     `gorm:"size:20" json:"state"`
	CommandPayload  string     `gorm:"type:text" json:"command_payload,omitempty"`
	ResponseMessage string     `gorm:"type:text" json:"response_message,omitempty"`
	Response        string     `gorm:"type:text" json:"response,omitempty"`
}

// TableName returns the table name for Command.
func (Command) TableName() string {
	return "commands"
}

// IsOperatorOriginated reports whether c was created by an operator
// (state=new, no confirmation timestamps yet) as opposed to a
// vessel-originated or confirmation insert.
func (c *Command) IsOperatorOriginated() bool {
	return CommandState(c.State) == CommandNew
}
