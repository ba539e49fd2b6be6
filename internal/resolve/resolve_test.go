package resolve

import (
	"testing"
)

func TestResolveCustomWins(t *testing.T) {
	for _, global := range []string{"", "/global"} {
		got := Resolve("/custom", global, func() (string, bool) { return "/detected", true })
		if got.Value != "/custom" || got.Provenance != Custom {
			t.Fatalf("global=%q: unexpected %+v", global, got)
		}
	}
}

func TestResolveGlobalWhenCustomEmpty(t *testing.T) {
	got := Resolve("", "/global", func() (string, bool) { return "/detected", true })
	if got.Value != "/global" || got.Provenance != Global {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestResolveFallsBackToEmptyGlobal(t *testing.T) {
	got := Resolve("", "", nil)
	if got.Value != "" || got.Provenance != None {
		t.Fatalf("unexpected %+v", got)
	}
	got = Resolve("", "", func() (string, bool) { return "", true })
	if got.Provenance != None {
		t.Fatalf("empty detection must not count: %+v", got)
	}
}

func TestResolveHomeDetection(t *testing.T) {
	got := ResolveHome("", "", true, "/opt/ora")
	if got.Value != "/opt/ora" || got.Provenance != Detected {
		t.Fatalf("unexpected %+v", got)
	}
	got = ResolveHome("", "", false, "/opt/ora")
	if got.Value != "" || got.Provenance != None {
		t.Fatalf("unexpected %+v", got)
	}
	got = ResolveHome("", "/global", true, "/opt/ora")
	if got.Value != "/global" || got.Provenance != Global {
		t.Fatalf("global must beat detection: %+v", got)
	}
}

func TestResolveAllEveryParameter(t *testing.T) {
	params := []Param{ParamOracleHome, ParamSQLPlusHome, ParamTNSAdmin, ParamNLSLang, ParamSQLPath}
	for _, p := range params {
		custom := valuesWith(p, "custom-"+string(p))
		global := valuesWith(p, "global-"+string(p))

		cfg := ResolveAll(Input{Custom: custom, Global: global}, nil)
		if got := cfg.Get(p); got.Value != "custom-"+string(p) || got.Provenance != Custom {
			t.Fatalf("%s with custom: unexpected %+v", p, got)
		}

		cfg = ResolveAll(Input{Global: global}, nil)
		if got := cfg.Get(p); got.Value != "global-"+string(p) || got.Provenance != Global {
			t.Fatalf("%s with global: unexpected %+v", p, got)
		}
	}
}

func TestResolveAllNotifiesInOrderSkippingCustom(t *testing.T) {
	var seen []Param
	cfg := ResolveAll(Input{
		Custom:       Values{NLSLang: "AMERICAN_AMERICA.UTF8"},
		Global:       Values{SQLPlusHome: "/usr/bin/sqlplus", SQLPath: "/scripts"},
		Autodetect:   true,
		DetectedHome: "/opt/ora",
	}, func(p Param, v Value) {
		if v.Provenance == Custom {
			t.Fatalf("custom selection must not be notified: %s", p)
		}
		seen = append(seen, p)
	})

	want := []Param{ParamSQLPlusHome, ParamTNSAdmin, ParamSQLPath, ParamOracleHome}
	if len(seen) != len(want) {
		t.Fatalf("unexpected notifications: %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("notification %d: want %s got %s", i, want[i], seen[i])
		}
	}
	if cfg.OracleHome.Provenance != Detected || cfg.OracleHome.Value != "/opt/ora" {
		t.Fatalf("unexpected home: %+v", cfg.OracleHome)
	}
	if cfg.TNSAdmin.Set() {
		t.Fatalf("unset TNS_ADMIN reported as set: %+v", cfg.TNSAdmin)
	}
}

func valuesWith(p Param, v string) Values {
	var out Values
	switch p {
	case ParamOracleHome:
		out.OracleHome = v
	case ParamSQLPlusHome:
		out.SQLPlusHome = v
	case ParamTNSAdmin:
		out.TNSAdmin = v
	case ParamNLSLang:
		out.NLSLang = v
	case ParamSQLPath:
		out.SQLPath = v
	}
	return out
}
