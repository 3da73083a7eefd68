package serialmux

import (
	"testing"
)

func TestClassifySentence(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"$GPS,1000,473977418,85455939,488000,3,0.5,0.8,0.3,1.0,2.0,-0.5,1", SentenceTypeGPS},
		{"$ASPD,1000,18.2,1.05", SentenceTypeAirspeed},
		{"$BARO,1000,488.2", SentenceTypeBaro},
		{"$MAG,1000,0.2,0.0,0.4", SentenceTypeUnknown},
		{"garbage", SentenceTypeUnknown},
		{"", SentenceTypeUnknown},
	}

	for _, tt := range tests {
		if got := ClassifySentence(tt.line); got != tt.want {
			t.Errorf("ClassifySentence(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestParseGPSSentence(t *testing.T) {
	msg, err := ParseGPSSentence("$GPS,123456789,473977418,85455939,488000,3,0.5,0.8,0.3,1.0,2.0,-0.5,1")
	if err != nil {
		t.Fatalf("ParseGPSSentence returned error: %v", err)
	}

	if msg.TimeUS != 123456789 {
		t.Errorf("TimeUS = %d, want 123456789", msg.TimeUS)
	}
	if msg.Lat != 473977418 {
		t.Errorf("Lat = %d, want 473977418", msg.Lat)
	}
	if msg.Lon != 85455939 {
		t.Errorf("Lon = %d, want 85455939", msg.Lon)
	}
	if msg.Alt != 488000 {
		t.Errorf("Alt = %d, want 488000", msg.Alt)
	}
	if msg.FixType != 3 {
		t.Errorf("FixType = %d, want 3", msg.FixType)
	}
	if msg.EPH != 0.5 || msg.EPV != 0.8 || msg.SAcc != 0.3 {
		t.Errorf("accuracy fields = %v %v %v, want 0.5 0.8 0.3", msg.EPH, msg.EPV, msg.SAcc)
	}
	if msg.VelNED != [3]float32{1.0, 2.0, -0.5} {
		t.Errorf("VelNED = %v, want [1 2 -0.5]", msg.VelNED)
	}
	if !msg.VelNEDValid {
		t.Error("VelNEDValid = false, want true")
	}
}

func TestParseGPSSentence_VelocityInvalid(t *testing.T) {
	msg, err := ParseGPSSentence("$GPS,1000,0,0,0,2,1.5,2.0,0.9,0,0,0,0")
	if err != nil {
		t.Fatalf("ParseGPSSentence returned error: %v", err)
	}
	if msg.VelNEDValid {
		t.Error("VelNEDValid = true, want false")
	}
	if msg.FixType != 2 {
		t.Errorf("FixType = %d, want 2", msg.FixType)
	}
}

func TestParseGPSSentence_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"wrong prefix", "$BARO,1000,10.5"},
		{"too few fields", "$GPS,1000,473977418,85455939"},
		{"too many fields", "$GPS,1,2,3,4,5,6,7,8,9,10,11,12,13"},
		{"bad time_us", "$GPS,abc,473977418,85455939,488000,3,0.5,0.8,0.3,1.0,2.0,-0.5,1"},
		{"bad lat", "$GPS,1000,not-a-lat,85455939,488000,3,0.5,0.8,0.3,1.0,2.0,-0.5,1"},
		{"bad fix", "$GPS,1000,473977418,85455939,488000,nine,0.5,0.8,0.3,1.0,2.0,-0.5,1"},
		{"bad velocity", "$GPS,1000,473977418,85455939,488000,3,0.5,0.8,0.3,x,2.0,-0.5,1"},
		{"bad valid flag", "$GPS,1000,473977418,85455939,488000,3,0.5,0.8,0.3,1.0,2.0,-0.5,maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseGPSSentence(tt.line); err == nil {
				t.Errorf("ParseGPSSentence(%q) succeeded, want error", tt.line)
			}
		})
	}
}

func TestParseAirspeedSentence(t *testing.T) {
	as, err := ParseAirspeedSentence("$ASPD,5000,18.25,1.05")
	if err != nil {
		t.Fatalf("ParseAirspeedSentence returned error: %v", err)
	}
	if as.TimeUS != 5000 {
		t.Errorf("TimeUS = %d, want 5000", as.TimeUS)
	}
	if as.TrueAirspeed != 18.25 {
		t.Errorf("TrueAirspeed = %v, want 18.25", as.TrueAirspeed)
	}
	if as.EAS2TAS != 1.05 {
		t.Errorf("EAS2TAS = %v, want 1.05", as.EAS2TAS)
	}

	if _, err := ParseAirspeedSentence("$ASPD,5000,18.25"); err == nil {
		t.Error("Expected error for missing eas2tas field")
	}
	if _, err := ParseAirspeedSentence("$ASPD,5000,fast,1.05"); err == nil {
		t.Error("Expected error for non-numeric tas")
	}
}

func TestParseBaroSentence(t *testing.T) {
	baro, err := ParseBaroSentence("$BARO,7000,487.9")
	if err != nil {
		t.Fatalf("ParseBaroSentence returned error: %v", err)
	}
	if baro.TimeUS != 7000 {
		t.Errorf("TimeUS = %d, want 7000", baro.TimeUS)
	}
	if baro.Height != 487.9 {
		t.Errorf("Height = %v, want 487.9", baro.Height)
	}

	if _, err := ParseBaroSentence("$BARO,7000"); err == nil {
		t.Error("Expected error for missing height field")
	}
	if _, err := ParseBaroSentence("$BARO,7000,487.9,extra"); err == nil {
		t.Error("Expected error for extra field")
	}
}

func TestParseSentence_TrimsWhitespace(t *testing.T) {
	baro, err := ParseBaroSentence("  $BARO,7000,487.9\r")
	if err != nil {
		t.Fatalf("ParseBaroSentence returned error: %v", err)
	}
	if baro.Height != 487.9 {
		t.Errorf("Height = %v, want 487.9", baro.Height)
	}
}
