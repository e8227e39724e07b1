package generic

// =============================================================================
// ORDERING PRECONDITIONS
// =============================================================================
// The engine never sorts or drops records. These checks enforce the caller's
// ordering contract and report the first record that breaks it.

// CheckRideSequence verifies that rides are well-formed, time-ordered by
// pickup and non-overlapping.
func CheckRideSequence(driverID DriverID, rides []RideRecord) error {
	for i, r := range rides {
		if !r.DropoffAt.After(r.PickupAt) {
			return &IntervalError{RecordID: string(r.ID), Start: r.PickupAt, End: r.DropoffAt}
		}
		if i == 0 {
			continue
		}
		prev := rides[i-1]
		switch {
		case r.PickupAt.Before(prev.PickupAt):
			return &SequenceError{DriverID: driverID, RecordID: string(r.ID), PreviousID: string(prev.ID), Reason: "out_of_order"}
		case r.PickupAt.Before(prev.DropoffAt):
			return &SequenceError{DriverID: driverID, RecordID: string(r.ID), PreviousID: string(prev.ID), Reason: "overlap"}
		}
	}
	return nil
}

// CheckShiftSequence verifies that shifts are well-formed, time-ordered by
// start and non-overlapping.
func CheckShiftSequence(driverID DriverID, shifts []ShiftRecord) error {
	for i, s := range shifts {
		if _, _, _, err := s.WorkMinutes(); err != nil {
			return err
		}
		if i == 0 {
			continue
		}
		prev := shifts[i-1]
		switch {
		case s.StartAt.Before(prev.StartAt):
			return &SequenceError{DriverID: driverID, RecordID: string(s.ID), PreviousID: string(prev.ID), Reason: "out_of_order"}
		case s.StartAt.Before(prev.EndAt):
			return &SequenceError{DriverID: driverID, RecordID: string(s.ID), PreviousID: string(prev.ID), Reason: "overlap"}
		}
	}
	return nil
}
