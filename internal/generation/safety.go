package generation

// SafetySetting pairs a harm category with its blocking threshold using
// the backend wire enum strings. Backends translate these into their own
// request types.
type SafetySetting struct {
	Category  string
	Threshold string
}

// BlockMediumAndAbove is the process-wide blocking threshold.
const BlockMediumAndAbove = "BLOCK_MEDIUM_AND_ABOVE"

// safetySettings is fixed for the whole process and is not
// user-configurable. Every backend call carries exactly this set.
var safetySettings = []SafetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: BlockMediumAndAbove},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: BlockMediumAndAbove},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: BlockMediumAndAbove},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: BlockMediumAndAbove},
}

// SafetySettings returns a copy of the process-wide safety policy.
func SafetySettings() []SafetySetting {
	return append([]SafetySetting(nil), safetySettings...)
}
