package collective

// Exported aliases for unexported identifiers, so that test files needing
// both package-internal access and an external Handle implementation (e.g.
// memhandle, which imports this package) can live in package
// collective_test without creating an import cycle.

var NewBaseForTest = newBase
var NewProbeCacheForTest = newProbeCache
var ProbeHandleForTest = probeHandle
var ReceiveFromHandleForTest = receiveFromHandle
