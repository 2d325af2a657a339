package models

import "fmt"

// BackendKind selects which browser transport serves a request.
type BackendKind string

const (
	// BackendAuto lets the orchestrator pick, with failover.
	BackendAuto BackendKind = "auto"

	// BackendRod is the DevTools-protocol transport (go-rod).
	BackendRod BackendKind = "rod"

	// BackendWebDriver is the WebDriver-protocol transport (chromedriver).
	BackendWebDriver BackendKind = "webdriver"
)

// ParseBackendKind validates a backend name from flags or tool arguments.
// An empty string means auto.
func ParseBackendKind(s string) (BackendKind, error) {
	switch BackendKind(s) {
	case "", BackendAuto:
		return BackendAuto, nil
	case BackendRod:
		return BackendRod, nil
	case BackendWebDriver:
		return BackendWebDriver, nil
	}
	return "", fmt.Errorf("unknown backend %q (use auto, rod or webdriver)", s)
}

func (b BackendKind) String() string { return string(b) }

// SearchEngine identifies a supported search engine.
type SearchEngine string

const (
	EngineGoogle     SearchEngine = "google"
	EngineBing       SearchEngine = "bing"
	EngineDuckDuckGo SearchEngine = "duckduckgo"
)

// ParseSearchEngine validates an engine name from flags or tool arguments.
// An empty string means the default engine (bing).
func ParseSearchEngine(s string) (SearchEngine, error) {
	switch SearchEngine(s) {
	case "":
		return EngineBing, nil
	case EngineGoogle:
		return EngineGoogle, nil
	case EngineBing:
		return EngineBing, nil
	case EngineDuckDuckGo:
		return EngineDuckDuckGo, nil
	}
	return "", fmt.Errorf("unknown engine %q (use google, bing or duckduckgo)", s)
}

func (e SearchEngine) String() string { return string(e) }
