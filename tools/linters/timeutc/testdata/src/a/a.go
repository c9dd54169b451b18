package a

import "time"

func stampEnvelope() string {
	return time.Now().Format(time.RFC3339) // want "time.Now\\(\\) should be followed by .UTC\\(\\) for timezone consistency"
}

func stampEnvelopeUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func taskUpdatedAt() time.Time {
	updated := time.Now() // want "time.Now\\(\\) should be followed by .UTC\\(\\) for timezone consistency"
	return updated
}

func taskUpdatedAtUTC() time.Time {
	updated := time.Now().UTC()
	return updated
}

func reminderIsDue(trigger time.Time) bool {
	return time.Now().UTC().After(trigger)
}

func nolintGeneral() {
	//nolint
	_ = time.Now()
}

func nolintSpecific() {
	_ = time.Now() //nolint:timeutc
}

func nolintOtherLinter() {
	_ = time.Now() //nolint:otherlinter // want "time.Now\\(\\) should be followed by .UTC\\(\\) for timezone consistency"
}
