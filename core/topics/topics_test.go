package topics

import "testing"

func TestLayout(t *testing.T) {
	if got := State("skoda/enyaq"); got != "skoda/enyaq/state" {
		t.Errorf("state topic: %s", got)
	}
	if got := Availability("skoda/enyaq/"); got != "skoda/enyaq/availability" {
		t.Errorf("availability topic with trailing slash: %s", got)
	}
	if got := Command("skoda/enyaq", "lock"); got != "skoda/enyaq/cmd/lock" {
		t.Errorf("command topic: %s", got)
	}
	if got := CommandWildcard("skoda/enyaq"); got != "skoda/enyaq/cmd/#" {
		t.Errorf("wildcard: %s", got)
	}
	if got := DiscoveryConfig("homeassistant", "sensor", "skoda_VIN", "battery_soc"); got != "homeassistant/sensor/skoda_VIN/battery_soc/config" {
		t.Errorf("discovery topic: %s", got)
	}
}

func TestCommandSuffix(t *testing.T) {
	cases := []struct {
		topic  string
		suffix string
		ok     bool
	}{
		{"skoda/enyaq/cmd/lock", "lock", true},
		{"skoda/enyaq/cmd/unknown_action", "unknown_action", true},
		{"skoda/enyaq/state", "", false},
		{"other/cmd/lock", "", false},
	}
	for _, c := range cases {
		suffix, ok := CommandSuffix("skoda/enyaq", c.topic)
		if suffix != c.suffix || ok != c.ok {
			t.Errorf("%s: got (%q, %v) want (%q, %v)", c.topic, suffix, ok, c.suffix, c.ok)
		}
	}
}
