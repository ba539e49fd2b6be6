// Package resolve applies the override precedence law to runtime parameters.
//
// Each parameter is resolved independently: per-invocation custom value,
// then operator global default, then (ORACLE_HOME only) the value detected on
// the execution target, then the global default verbatim.
package resolve

// Provenance names the precedence tier that supplied a value. It is used for
// diagnostics only.
type Provenance int

const (
	None Provenance = iota
	Custom
	Global
	Detected
)

func (p Provenance) String() string {
	switch p {
	case Custom:
		return "custom"
	case Global:
		return "global"
	case Detected:
		return "detected"
	default:
		return "none"
	}
}

// Param identifies one of the five resolved parameters.
type Param string

const (
	ParamSQLPlusHome Param = "SQLPLUS_HOME"
	ParamTNSAdmin    Param = "TNS_ADMIN"
	ParamNLSLang     Param = "NLS_LANG"
	ParamSQLPath     Param = "SQLPATH"
	ParamOracleHome  Param = "ORACLE_HOME"
)

// Order is the fixed resolution (and therefore logging) order. ORACLE_HOME
// comes last.
var Order = []Param{ParamSQLPlusHome, ParamTNSAdmin, ParamNLSLang, ParamSQLPath, ParamOracleHome}

// Value is one resolved parameter.
type Value struct {
	Value      string
	Provenance Provenance
}

// Set reports whether the resolved value is non-empty.
func (v Value) Set() bool {
	return v.Value != ""
}

// Values holds raw values for the five parameters; used both for
// per-invocation overrides and for operator defaults.
type Values struct {
	OracleHome  string
	SQLPlusHome string
	TNSAdmin    string
	NLSLang     string
	SQLPath     string
}

func (v Values) get(p Param) string {
	switch p {
	case ParamOracleHome:
		return v.OracleHome
	case ParamSQLPlusHome:
		return v.SQLPlusHome
	case ParamTNSAdmin:
		return v.TNSAdmin
	case ParamNLSLang:
		return v.NLSLang
	case ParamSQLPath:
		return v.SQLPath
	}
	return ""
}

// Config is the effective configuration of one run.
type Config struct {
	OracleHome  Value
	SQLPlusHome Value
	TNSAdmin    Value
	NLSLang     Value
	SQLPath     Value
}

// Get returns the resolved value for p.
func (c Config) Get(p Param) Value {
	switch p {
	case ParamOracleHome:
		return c.OracleHome
	case ParamSQLPlusHome:
		return c.SQLPlusHome
	case ParamTNSAdmin:
		return c.TNSAdmin
	case ParamNLSLang:
		return c.NLSLang
	case ParamSQLPath:
		return c.SQLPath
	}
	return Value{}
}

func (c *Config) set(p Param, v Value) {
	switch p {
	case ParamOracleHome:
		c.OracleHome = v
	case ParamSQLPlusHome:
		c.SQLPlusHome = v
	case ParamTNSAdmin:
		c.TNSAdmin = v
	case ParamNLSLang:
		c.NLSLang = v
	case ParamSQLPath:
		c.SQLPath = v
	}
}

// Detector yields an auto-detected value; ok is false when nothing was found.
type Detector func() (value string, ok bool)

// Resolve applies the precedence law for one parameter. detect may be nil.
func Resolve(custom, global string, detect Detector) Value {
	if custom != "" {
		return Value{Value: custom, Provenance: Custom}
	}
	if global != "" {
		return Value{Value: global, Provenance: Global}
	}
	if detect != nil {
		if v, ok := detect(); ok && v != "" {
			return Value{Value: v, Provenance: Detected}
		}
	}
	return Value{Value: global, Provenance: None}
}

// ResolveHome resolves ORACLE_HOME, consulting the detected value only when
// autodetect is enabled.
func ResolveHome(custom, global string, autodetect bool, detected string) Value {
	var detect Detector
	if autodetect {
		detect = func() (string, bool) { return detected, detected != "" }
	}
	return Resolve(custom, global, detect)
}

// Notifier receives each non-custom selection before the value is used.
type Notifier func(p Param, v Value)

// Input gathers everything ResolveAll needs.
type Input struct {
	Custom     Values
	Global     Values
	Autodetect bool
	// DetectedHome is ORACLE_HOME as seen in the target environment.
	DetectedHome string
}

// ResolveAll resolves the five parameters in Order, calling notify once for
// every parameter whose provenance is not Custom.
func ResolveAll(in Input, notify Notifier) Config {
	var cfg Config
	for _, p := range Order {
		var v Value
		if p == ParamOracleHome {
			v = ResolveHome(in.Custom.OracleHome, in.Global.OracleHome, in.Autodetect, in.DetectedHome)
		} else {
			v = Resolve(in.Custom.get(p), in.Global.get(p), nil)
		}
		if v.Provenance != Custom && notify != nil {
			notify(p, v)
		}
		cfg.set(p, v)
	}
	return cfg
}
