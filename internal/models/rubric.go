package models

const (
	CriterionProfessionalism        = "professionalism"
	CriterionCommunication          = "communication"
	CriterionWorkEthic              = "work_ethic"
	CriterionContentKnowledgeSkills = "content_knowledge_skills"
	CriterionOverallContribution    = "overall_contribution"
	CriterionParticipation          = "participation"

	FieldOverallFeedback = "overall_feedback"
)

type Criterion struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	MinScale          int            `json:"min_scale"`
	MaxScale          int            `json:"max_scale"`
	ScaleDescriptions map[int]string `json:"scale_descriptions"`
}

type TextField struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MinLength   int    `json:"min_length"`
	MaxLength   int    `json:"max_length"`
}

type RubricDefinition struct {
	Criteria []Criterion `json:"criteria"`
	Feedback TextField   `json:"feedback"`
}

var fivePoint = map[int]string{
	1: "Poor",
	2: "Below expectations",
	3: "Meets expectations",
	4: "Above expectations",
	5: "Excellent",
}

// Rubric is the fixed rubric every evaluation is collected and scored against.
var Rubric = RubricDefinition{
	Criteria: []Criterion{
		{
			ID:                CriterionProfessionalism,
			Name:              "Professionalism",
			Description:       "Treats teammates with respect, keeps commitments and behaves appropriately.",
			MinScale:          1,
			MaxScale:          5,
			ScaleDescriptions: fivePoint,
		},
		{
			ID:                CriterionCommunication,
			Name:              "Communication",
			Description:       "Shares information clearly and responds to teammates in a timely manner.",
			MinScale:          1,
			MaxScale:          5,
			ScaleDescriptions: fivePoint,
		},
		{
			ID:                CriterionWorkEthic,
			Name:              "Work Ethic",
			Description:       "Puts in consistent effort and completes assigned work on time.",
			MinScale:          1,
			MaxScale:          5,
			ScaleDescriptions: fivePoint,
		},
		{
			ID:                CriterionContentKnowledgeSkills,
			Name:              "Content Knowledge & Skills",
			Description:       "Brings relevant knowledge and skills to the team's work.",
			MinScale:          1,
			MaxScale:          5,
			ScaleDescriptions: fivePoint,
		},
		{
			ID:                CriterionOverallContribution,
			Name:              "Overall Contribution",
			Description:       "Overall value this teammate added to the project.",
			MinScale:          1,
			MaxScale:          5,
			ScaleDescriptions: fivePoint,
		},
		{
			ID:          CriterionParticipation,
			Name:        "Participation",
			Description: "Attends meetings and takes part in team activities.",
			MinScale:    1,
			MaxScale:    4,
			ScaleDescriptions: map[int]string{
				1: "Rarely participated",
				2: "Sometimes participated",
				3: "Usually participated",
				4: "Always participated",
			},
		},
	},
	Feedback: TextField{
		ID:          FieldOverallFeedback,
		Name:        "Overall Feedback",
		Description: "Describe this teammate's strengths and what they could improve.",
		MinLength:   10,
		MaxLength:   1000,
	},
}

// CommonScale is the scale every criterion is normalized to before averaging.
const CommonScale = 5
