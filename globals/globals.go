package globals

// Context keys
type ContextKey string

const SubjectKey ContextKey = "subject"

// TimeLayout renders UTC timestamps in ISO-8601 with a literal trailing Z.
const TimeLayout = "2006-01-02T15:04:05.000000Z"
