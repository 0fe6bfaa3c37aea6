package schematic

// ExposeReport lists the board's connectors. An empty report is the explicit
// "no exposed pins" answer, not an error.
type ExposeReport struct {
	Connectors []ExposedConnector `json:"connectors"`
}

// Empty reports whether the board declares no connectors.
func (r ExposeReport) Empty() bool { return len(r.Connectors) == 0 }

// ExposedConnector is one connector and its nets in declaration order.
type ExposedConnector struct {
	Name string       `json:"name"`
	Pins []ExposedPin `json:"pins"`
}

// ExposedPin is a connector net and the first used device on it.
type ExposedPin struct {
	Net    Net    `json:"pin"`
	UsedBy string `json:"used_by,omitempty"`
}

// Free reports whether no used device sits on the net.
func (p ExposedPin) Free() bool { return p.UsedBy == "" }

// Exposes resolves the usage of every net surfaced by the board connectors.
func (q *QueryBuilder) Exposes() ExposeReport {
	report := ExposeReport{Connectors: []ExposedConnector{}}
	if len(q.snap.Board.Exposes) == 0 {
		return report
	}

	devices := q.devicesWithStatus()
	for _, expose := range q.snap.Board.Exposes {
		conn := ExposedConnector{Name: expose.Name, Pins: make([]ExposedPin, 0, len(expose.Pins))}
		for _, net := range expose.Pins {
			conn.Pins = append(conn.Pins, ExposedPin{Net: net, UsedBy: usedBy(devices, net)})
		}
		report.Connectors = append(report.Connectors, conn)
	}
	return report
}
