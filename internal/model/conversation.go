package model

import "time"

// Stage is the coarse progress label of a conversation
type Stage string

// Conversation stages
const (
	StageDiscovery   Stage = "discovery"
	StageQualifying  Stage = "qualifying"
	StageSolutioning Stage = "solutioning"
	StageClosing     Stage = "closing"
)

// OutcomeInProgress marks a stored exchange whose conversation is still open
const OutcomeInProgress = "in_progress"

// ConversationContext is the per-turn state summary handed to the context builder
type ConversationContext struct {
	Stage              Stage           `json:"stage"`
	MessageCount       int             `json:"messageCount"`
	TopicsDiscussed    []string        `json:"topicsDiscussed"`
	CurrentPreferences PreferenceState `json:"currentPreferences"`
	ExtractedThisTurn  []string        `json:"extractedThisTurn"`
	CanSearch          bool            `json:"canSearch"`
}

// SimilarConversation is a previously stored exchange close to the current message
type SimilarConversation struct {
	ID                string   `json:"id" db:"id"`
	UserMessage       string   `json:"userMessage" db:"user_message"`
	AssistantResponse string   `json:"assistantResponse" db:"assistant_response"`
	ProblemDetected   *string  `json:"problemDetected,omitempty" db:"problem_detected"`
	SolutionPresented *string  `json:"solutionPresented,omitempty" db:"solution_presented"`
	Outcome           *string  `json:"outcome,omitempty" db:"outcome"`
	ConversionScore   *float64 `json:"conversionScore,omitempty" db:"conversion_score"`
	Similarity        float64  `json:"similarity" db:"similarity"`
}

// ResponsePattern is the highest-converting prior response
type ResponsePattern struct {
	Approach        string  `json:"approach"`
	ConversionScore float64 `json:"conversionScore"`
	Stage           Stage   `json:"stage"`
}

// GuidanceConfidence scores how much the similar conversations agree
type GuidanceConfidence struct {
	ProblemDetection float64 `json:"problemDetection"`
	SolutionMatch    float64 `json:"solutionMatch"`
	Overall          float64 `json:"overall"`
}

// Urgency levels
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Guidance is the semantic context produced for one turn
type Guidance struct {
	SimilarConversations []SimilarConversation `json:"similarConversations,omitempty"`
	DetectedProblems     []string              `json:"detectedProblems"`
	RecommendedSolutions []string              `json:"recommendedSolutions"`
	BestPattern          *ResponsePattern      `json:"bestPattern,omitempty"`
	Confidence           GuidanceConfidence    `json:"confidence"`
	SuggestedApproach    string                `json:"suggestedApproach"`
	KeyPoints            []string              `json:"keyPoints"`
	AvoidTopics          []string              `json:"avoidTopics"`
	UrgencyLevel         string                `json:"urgencyLevel"`
}

// TopProblem returns the most frequent detected problem, if any
func (g *Guidance) TopProblem() *string {
	if g == nil || len(g.DetectedProblems) == 0 {
		return nil
	}
	return StringPtr(g.DetectedProblems[0])
}

// TopSolution returns the most frequent recommended solution, if any
func (g *Guidance) TopSolution() *string {
	if g == nil || len(g.RecommendedSolutions) == 0 {
		return nil
	}
	return StringPtr(g.RecommendedSolutions[0])
}

// ConversationRecord is one persisted exchange, later searched for guidance
type ConversationRecord struct {
	ID                string    `json:"id" db:"id"`
	Industry          string    `json:"industry" db:"industry"`
	SessionID         string    `json:"sessionId" db:"session_id"`
	OrganizationID    string    `json:"organizationId" db:"organization_id"`
	UserMessage       string    `json:"userMessage" db:"user_message"`
	AssistantResponse string    `json:"assistantResponse" db:"assistant_response"`
	Stage             Stage     `json:"stage" db:"conversation_stage"`
	Outcome           string    `json:"outcome" db:"outcome"`
	BookingCompleted  bool      `json:"bookingCompleted" db:"booking_completed"`
	ProblemDetected   *string   `json:"problemDetected,omitempty" db:"problem_detected"`
	SolutionPresented *string   `json:"solutionPresented,omitempty" db:"solution_presented"`
	ResponseTimeMs    int       `json:"responseTimeMs" db:"response_time_ms"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
}
