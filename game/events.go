package game

import (
	"sort"

	"runeRelicServer/fixed"
)

// EventPriority orders events inside one tick. Lower sorts first.
type EventPriority uint8

const (
	PriorityElimination    EventPriority = 0
	PriorityRuneCollection EventPriority = 1
	PriorityFormEvolution  EventPriority = 2
	PriorityShrine         EventPriority = 3
	PriorityAbility        EventPriority = 4
	PriorityOther          EventPriority = 255
)

// EventData is one of the payload structs below. Consumers switch on the
// concrete type.
type EventData interface {
	eventData()
}

type PlayerEliminated struct {
	Victim    PlayerID  `json:"victim"`
	Killer    *PlayerID `json:"killer,omitempty"`
	Placement uint8     `json:"placement"`
}

type RuneCollected struct {
	Player   PlayerID `json:"player"`
	RuneID   uint32   `json:"runeId"`
	RuneType RuneType `json:"runeType"`
	Points   uint32   `json:"points"`
	NewScore uint32   `json:"newScore"`
}

type FormEvolved struct {
	Player  PlayerID `json:"player"`
	OldForm Form     `json:"oldForm"`
	NewForm Form     `json:"newForm"`
}

type ShrineChannelStarted struct {
	Player   PlayerID `json:"player"`
	ShrineID uint8    `json:"shrineId"`
}

type ShrineActivated struct {
	Player   PlayerID `json:"player"`
	ShrineID uint8    `json:"shrineId"`
}

type ShrineChannelInterrupted struct {
	Player   PlayerID `json:"player"`
	ShrineID uint8    `json:"shrineId"`
}

type AbilityUsed struct {
	Player  PlayerID    `json:"player"`
	Ability AbilityType `json:"ability"`
}

type PhaseChanged struct {
	OldPhase string `json:"oldPhase"`
	NewPhase string `json:"newPhase"`
}

type RuneSpawned struct {
	RuneID   uint32     `json:"runeId"`
	RuneType RuneType   `json:"runeType"`
	Position fixed.Vec2 `json:"position"`
}

type MatchEnded struct {
	Winner        *PlayerID `json:"winner,omitempty"`
	DurationTicks uint32    `json:"durationTicks"`
}

func (PlayerEliminated) eventData()         {}
func (RuneCollected) eventData()            {}
func (FormEvolved) eventData()              {}
func (ShrineChannelStarted) eventData()     {}
func (ShrineActivated) eventData()          {}
func (ShrineChannelInterrupted) eventData() {}
func (AbilityUsed) eventData()              {}
func (PhaseChanged) eventData()             {}
func (RuneSpawned) eventData()              {}
func (MatchEnded) eventData()               {}

// Event is an immutable record of something that happened in a tick.
type Event struct {
	Tick     uint32
	Priority EventPriority
	PlayerID *PlayerID
	Data     EventData
}

// NewEvent derives the priority and sort player from the payload.
func NewEvent(tick uint32, data EventData) Event {
	e := Event{Tick: tick, Priority: PriorityOther, Data: data}
	switch d := data.(type) {
	case PlayerEliminated:
		e.Priority = PriorityElimination
		e.PlayerID = ptrID(d.Victim)
	case RuneCollected:
		e.Priority = PriorityRuneCollection
		e.PlayerID = ptrID(d.Player)
	case FormEvolved:
		e.Priority = PriorityFormEvolution
		e.PlayerID = ptrID(d.Player)
	case ShrineChannelStarted:
		e.Priority = PriorityShrine
		e.PlayerID = ptrID(d.Player)
	case ShrineActivated:
		e.Priority = PriorityShrine
		e.PlayerID = ptrID(d.Player)
	case ShrineChannelInterrupted:
		e.Priority = PriorityShrine
		e.PlayerID = ptrID(d.Player)
	case AbilityUsed:
		e.Priority = PriorityAbility
		e.PlayerID = ptrID(d.Player)
	case MatchEnded:
		if d.Winner != nil {
			e.PlayerID = ptrID(*d.Winner)
		}
	}
	return e
}

func ptrID(id PlayerID) *PlayerID {
	return &id
}

// Name is the wire name used by the broadcaster.
func (e Event) Name() string {
	switch e.Data.(type) {
	case PlayerEliminated:
		return "player_eliminated"
	case RuneCollected:
		return "rune_collected"
	case FormEvolved:
		return "form_evolved"
	case ShrineChannelStarted:
		return "shrine_channel_started"
	case ShrineActivated:
		return "shrine_activated"
	case ShrineChannelInterrupted:
		return "shrine_channel_interrupted"
	case AbilityUsed:
		return "ability_used"
	case PhaseChanged:
		return "phase_changed"
	case RuneSpawned:
		return "rune_spawned"
	case MatchEnded:
		return "match_ended"
	}
	return "unknown"
}

// CompareEvents orders by tick, then priority, then player id with nil first.
func CompareEvents(a, b Event) int {
	switch {
	case a.Tick < b.Tick:
		return -1
	case a.Tick > b.Tick:
		return 1
	case a.Priority < b.Priority:
		return -1
	case a.Priority > b.Priority:
		return 1
	}
	return comparePlayerPtr(a.PlayerID, b.PlayerID)
}

// SortEvents is stable, so equal keys keep discovery order.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return CompareEvents(events[i], events[j]) < 0
	})
}
