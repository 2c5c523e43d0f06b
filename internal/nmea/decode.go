package nmea

// Field layouts follow NMEA 0183 v4.11; trailing fields added in 2.3 and 4.10
// are optional and only read when present.

// GGA
//
//	1: time  2-5: lat,N/S,lon,E/W  6: quality  7: satellites  8: HDOP
//	9-10: altitude,M  11-12: geoid separation,M  13: DGPS age  14: DGPS station
func decodeGGA(d fields) (Sentence, error) {
	var g GGA
	var err error
	if g.Time, err = d.timeOfDay(1); err != nil {
		return nil, err
	}
	code, err := d.requiredInt(6, 0, 9)
	if err != nil {
		return nil, err
	}
	q, ok := fixQualityFromCode(code)
	if !ok {
		return nil, d.invalid(6, "unmapped fix quality %d", code)
	}
	g.FixQuality = q

	pos, err := d.position(2)
	if err != nil {
		return nil, err
	}
	if pos == nil && q != NoFix {
		return nil, d.invalid(2, "fix quality %s without position", q)
	}

	sats, err := d.intRange(7, 0, 99)
	if err != nil {
		return nil, err
	}
	if sats != nil {
		g.SatellitesUsed = *sats
	}
	if g.HDOP, err = d.float(8, false); err != nil {
		return nil, err
	}

	alt, err := d.float(9, true)
	if err != nil {
		return nil, err
	}
	if _, err := d.letter(10, "M", alt != nil); err != nil {
		return nil, err
	}
	if g.GeoidSeparation, err = d.float(11, true); err != nil {
		return nil, err
	}
	if _, err := d.letter(12, "M", g.GeoidSeparation != nil); err != nil {
		return nil, err
	}
	if g.DGPSAge, err = d.float(13, false); err != nil {
		return nil, err
	}
	if st := d.str(14); st != "" {
		if _, err := d.intRange(14, 0, 1023); err != nil {
			return nil, err
		}
		g.DGPSStation = st
	}

	if q != NoFix {
		pos.Altitude = alt
		g.Position = pos
	}
	return g, nil
}

// RMC
//
//	1: time  2: status A/V  3-6: lat,N/S,lon,E/W  7: speed kn  8: course
//	9: date  10-11: magnetic variation,E/W  12: mode (2.3)  13: nav status (4.10)
func decodeRMC(d fields) (Sentence, error) {
	var r RMC
	var err error
	if r.Time, err = d.timeOfDay(1); err != nil {
		return nil, err
	}
	status, err := d.letter(2, "AV", true)
	if err != nil {
		return nil, err
	}
	r.Valid = status == 'A'

	pos, err := d.position(3)
	if err != nil {
		return nil, err
	}
	if r.Valid && pos == nil {
		return nil, d.invalid(3, "valid status without position")
	}
	if r.SpeedKnots, err = d.float(7, false); err != nil {
		return nil, err
	}
	if r.CourseDeg, err = d.floatRange(8, 0, 360, true); err != nil {
		return nil, err
	}
	if r.Date, err = d.date(9); err != nil {
		return nil, err
	}
	mv, err := d.floatRange(10, 0, 180, true)
	if err != nil {
		return nil, err
	}
	dir, err := d.letter(11, "EW", mv != nil)
	if err != nil {
		return nil, err
	}
	if mv != nil && dir == 'W' {
		v := -*mv
		mv = &v
	}
	r.MagneticVariation = mv
	if r.Mode, err = d.letter(12, "ADEFMNPRS", false); err != nil {
		return nil, err
	}
	if _, err := d.letter(13, "SCUV", false); err != nil {
		return nil, err
	}

	if r.Valid {
		r.Position = pos
	}
	return r, nil
}

// GSA
//
//	1: selection mode A/M  2: fix type 1/2/3  3-14: PRNs  15: PDOP  16: HDOP
//	17: VDOP  18: system ID (4.10)
func decodeGSA(d fields) (Sentence, error) {
	var g GSA
	var err error
	if g.SelectionMode, err = d.letter(1, "AM", true); err != nil {
		return nil, err
	}
	ft, err := d.requiredInt(2, 1, 3)
	if err != nil {
		return nil, err
	}
	g.FixType = FixType(ft)
	for i := 3; i <= 14; i++ {
		prn, err := d.intRange(i, 1, 999)
		if err != nil {
			return nil, err
		}
		if prn != nil {
			g.PRNs = append(g.PRNs, *prn)
		}
	}
	if g.DOP.PDOP, err = d.float(15, false); err != nil {
		return nil, err
	}
	if g.DOP.HDOP, err = d.float(16, false); err != nil {
		return nil, err
	}
	if g.DOP.VDOP, err = d.float(17, false); err != nil {
		return nil, err
	}
	id, err := d.intRange(18, 0, 15)
	if err != nil {
		return nil, err
	}
	if id != nil {
		g.SystemID = *id
	}
	return g, nil
}

// GSV
//
//	1: total messages  2: message number  3: satellites in view
//	4+4k..7+4k: PRN, elevation, azimuth, SNR (k < 4)  last: signal ID (4.10)
func decodeGSV(d fields) (Sentence, error) {
	var g GSV
	var err error
	if g.TotalMessages, err = d.requiredInt(1, 1, 9); err != nil {
		return nil, err
	}
	if g.MessageNumber, err = d.requiredInt(2, 1, g.TotalMessages); err != nil {
		return nil, err
	}
	if g.SatellitesInView, err = d.requiredInt(3, 0, 99); err != nil {
		return nil, err
	}

	groups := (len(d.f) - 4) / 4
	if (len(d.f)-4)%4 == 1 {
		g.SignalID = d.str(len(d.f) - 1)
		if g.SignalID != "" && (len(g.SignalID) != 1 || !isHexDigit(g.SignalID[0])) {
			return nil, d.invalid(len(d.f)-1, "bad signal id %q", g.SignalID)
		}
	}
	for k := 0; k < groups; k++ {
		base := 4 + 4*k
		if d.str(base) == "" && d.str(base+1) == "" && d.str(base+2) == "" && d.str(base+3) == "" {
			continue
		}
		prn, err := d.requiredInt(base, 1, 999)
		if err != nil {
			return nil, err
		}
		sat := SatelliteInfo{PRN: prn}
		if sat.Elevation, err = d.intRange(base+1, 0, 90); err != nil {
			return nil, err
		}
		if sat.Azimuth, err = d.intRange(base+2, 0, 359); err != nil {
			return nil, err
		}
		if sat.SNR, err = d.intRange(base+3, 0, 99); err != nil {
			return nil, err
		}
		g.Satellites = append(g.Satellites, sat)
	}
	return g, nil
}

// GLL
//
//	1-4: lat,N/S,lon,E/W  5: time  6: status A/V  7: mode (2.3)
func decodeGLL(d fields) (Sentence, error) {
	var g GLL
	pos, err := d.position(1)
	if err != nil {
		return nil, err
	}
	if g.Time, err = d.timeOfDay(5); err != nil {
		return nil, err
	}
	status, err := d.letter(6, "AV", true)
	if err != nil {
		return nil, err
	}
	g.Valid = status == 'A'
	if g.Valid && pos == nil {
		return nil, d.invalid(1, "valid status without position")
	}
	if g.Mode, err = d.letter(7, "ADEFMNPRS", false); err != nil {
		return nil, err
	}
	if g.Valid {
		g.Position = pos
	}
	return g, nil
}

// VTG
//
//	1-2: course,T  3-4: course,M  5-6: speed,N  7-8: speed,K  9: mode (2.3)
func decodeVTG(d fields) (Sentence, error) {
	var v VTG
	var err error
	if v.CourseTrue, err = d.floatRange(1, 0, 360, true); err != nil {
		return nil, err
	}
	if _, err := d.letter(2, "T", false); err != nil {
		return nil, err
	}
	if v.CourseMagnetic, err = d.floatRange(3, 0, 360, true); err != nil {
		return nil, err
	}
	if _, err := d.letter(4, "M", false); err != nil {
		return nil, err
	}
	if v.SpeedKnots, err = d.float(5, false); err != nil {
		return nil, err
	}
	if _, err := d.letter(6, "N", false); err != nil {
		return nil, err
	}
	if v.SpeedKPH, err = d.float(7, false); err != nil {
		return nil, err
	}
	if _, err := d.letter(8, "K", false); err != nil {
		return nil, err
	}
	if v.Mode, err = d.letter(9, "ADEFMNPRS", false); err != nil {
		return nil, err
	}
	return v, nil
}
