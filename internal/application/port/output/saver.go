package output

// SaverPort appends a research payload to persistent storage and returns a
// human-readable confirmation.
type SaverPort interface {
	Save(payload any) (string, error)
	Location() string
}
