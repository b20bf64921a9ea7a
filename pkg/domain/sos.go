package domain

// SosStatusPending marks an SOS alert nobody has handled yet.
const SosStatusPending = "pending"

// SosAlert is an emergency event raised by a guard in the field.
type SosAlert struct {
	ID        int64  `json:"id"`
	SosType   string `json:"sos_type"`
	GuardName string `json:"guard_name"`
	Status    string `json:"status"`
}

// Pending reports whether the alert still needs attention.
func (a SosAlert) Pending() bool {
	return a.Status == SosStatusPending
}

// PartitionPending splits alerts into pending and everything else,
// preserving order within each half.
func PartitionPending(alerts []SosAlert) (pending, rest []SosAlert) {
	for _, a := range alerts {
		if a.Pending() {
			pending = append(pending, a)
		} else {
			rest = append(rest, a)
		}
	}
	return pending, rest
}
