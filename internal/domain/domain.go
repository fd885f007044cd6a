package domain

type CampaignStatus string

const (
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignArchived  CampaignStatus = "archived"
)

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignActive, CampaignPaused, CampaignCompleted, CampaignArchived:
		return true
	}
	return false
}

type MissionStatus string

const (
	MissionNotStarted MissionStatus = "not_started"
	MissionInProgress MissionStatus = "in_progress"
	MissionBlocked    MissionStatus = "blocked"
	MissionCompleted  MissionStatus = "completed"
)

func (s MissionStatus) Valid() bool {
	switch s {
	case MissionNotStarted, MissionInProgress, MissionBlocked, MissionCompleted:
		return true
	}
	return false
}

type SortieStatus string

const (
	SortieQueued    SortieStatus = "queued"
	SortieActive    SortieStatus = "active"
	SortieCompleted SortieStatus = "completed"
	SortieAbandoned SortieStatus = "abandoned"
)

func (s SortieStatus) Valid() bool {
	switch s {
	case SortieQueued, SortieActive, SortieCompleted, SortieAbandoned:
		return true
	}
	return false
}

type CognitiveLoad string

const (
	LoadDeep   CognitiveLoad = "deep"
	LoadMedium CognitiveLoad = "medium"
	LoadLight  CognitiveLoad = "light"
)

func (l CognitiveLoad) Valid() bool {
	switch l {
	case LoadDeep, LoadMedium, LoadLight:
		return true
	}
	return false
}

type EnergyLevel string

const (
	EnergyGreen  EnergyLevel = "green"
	EnergyYellow EnergyLevel = "yellow"
	EnergyRed    EnergyLevel = "red"
)

func (e EnergyLevel) Valid() bool {
	switch e {
	case EnergyGreen, EnergyYellow, EnergyRed:
		return true
	}
	return false
}

type AAROutcome string

const (
	OutcomeCompleted AAROutcome = "completed"
	OutcomePartial   AAROutcome = "partial"
	OutcomeBlocked   AAROutcome = "blocked"
	OutcomePivoted   AAROutcome = "pivoted"
)

func (o AAROutcome) Valid() bool {
	switch o {
	case OutcomeCompleted, OutcomePartial, OutcomeBlocked, OutcomePivoted:
		return true
	}
	return false
}

// Campaign is a long-running area of effort. PriorityRank 1 is most
// important; only active campaigns participate in analytics.
type Campaign struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Description       string         `json:"description,omitempty"`
	Status            CampaignStatus `json:"status" enum:"active,paused,completed,archived"`
	PriorityRank      int            `json:"priority_rank"`
	WeeklyBlockTarget int            `json:"weekly_block_target"`
	Colour            string         `json:"colour"`
	Tags              string         `json:"tags,omitempty"`
	TargetDate        *string        `json:"target_date,omitempty" format:"date"`
	CreatedAt         string         `json:"created_at" format:"date-time"`
	UpdatedAt         string         `json:"updated_at" format:"date-time"`
}

type Mission struct {
	ID          string        `json:"id"`
	CampaignID  string        `json:"campaign_id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      MissionStatus `json:"status" enum:"not_started,in_progress,blocked,completed"`
	TargetDate  *string       `json:"target_date,omitempty" format:"date"`
	SortOrder   int           `json:"sort_order"`
	CreatedAt   string        `json:"created_at" format:"date-time"`
	CompletedAt *string       `json:"completed_at,omitempty" format:"date-time"`
}

// Sortie is the atomic unit of planned work; EstimatedBlocks is its cost in
// time-boxed work sessions.
type Sortie struct {
	ID              string        `json:"id"`
	MissionID       string        `json:"mission_id"`
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	CognitiveLoad   CognitiveLoad `json:"cognitive_load" enum:"deep,medium,light"`
	EstimatedBlocks int           `json:"estimated_blocks"`
	Status          SortieStatus  `json:"status" enum:"queued,active,completed,abandoned"`
	SortOrder       int           `json:"sort_order"`
	CreatedAt       string        `json:"created_at" format:"date-time"`
	StartedAt       *string       `json:"started_at,omitempty" format:"date-time"`
	CompletedAt     *string       `json:"completed_at,omitempty" format:"date-time"`
}

// AAR is an after-action record. ActualBlocks is the ground truth for
// velocity and drift; CreatedAt is the event time for all windowing, not
// the sortie's completion time.
type AAR struct {
	ID           string      `json:"id"`
	SortieID     string      `json:"sortie_id"`
	EnergyBefore EnergyLevel `json:"energy_before" enum:"green,yellow,red"`
	EnergyAfter  EnergyLevel `json:"energy_after" enum:"green,yellow,red"`
	Outcome      AAROutcome  `json:"outcome" enum:"completed,partial,blocked,pivoted"`
	ActualBlocks int         `json:"actual_blocks"`
	Notes        string      `json:"notes,omitempty"`
	CreatedAt    string      `json:"created_at" format:"date-time"`
}

// DailyCheckIn is upserted by date.
type DailyCheckIn struct {
	ID              string      `json:"id"`
	Date            string      `json:"date" format:"date"`
	EnergyLevel     EnergyLevel `json:"energy_level" enum:"green,yellow,red"`
	AvailableBlocks int         `json:"available_blocks"`
	FocusNote       string      `json:"focus_note,omitempty"`
	CreatedAt       string      `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
