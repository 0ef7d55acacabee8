package olecf

// Mode selects how much malformation an Open tolerates. Strict mode
// rejects anything the format forbids; lenient mode keeps parsing past
// recoverable directory damage, which is what triage of malicious or
// truncated files needs.
type Mode int

const (
	ModeStrict Mode = iota
	ModeLenient
)

func (m Mode) IsStrict() bool {
	return m == ModeStrict
}

func (m Mode) String() string {
	if m == ModeStrict {
		return "strict"
	}
	return "lenient"
}
