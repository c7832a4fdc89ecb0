package dashboards

import "encoding/json"

// DefaultDashboardName is the name used when provisioning the stock OEE view.
const DefaultDashboardName = "Plant OEE Overview"

// defaultLayout is the stock factory overview: one gauge per OEE component
// plus the composite, a downtime pareto and the production trend.
const defaultLayout = `{
  "panels": [
    {"id": "oee-gauge", "type": "gauge", "title": "OEE", "metric": "oee", "window": "8h", "pos": {"x": 0, "y": 0, "w": 3, "h": 3}},
    {"id": "availability-gauge", "type": "gauge", "title": "Availability", "metric": "availability", "window": "8h", "pos": {"x": 3, "y": 0, "w": 3, "h": 3}},
    {"id": "performance-gauge", "type": "gauge", "title": "Performance", "metric": "performance", "window": "8h", "pos": {"x": 6, "y": 0, "w": 3, "h": 3}},
    {"id": "quality-gauge", "type": "gauge", "title": "Quality", "metric": "quality", "window": "8h", "pos": {"x": 9, "y": 0, "w": 3, "h": 3}},
    {"id": "downtime-pareto", "type": "pareto", "title": "Downtime by Equipment", "metric": "runtime_min", "window": "24h", "pos": {"x": 0, "y": 3, "w": 6, "h": 4}},
    {"id": "production-trend", "type": "timeseries", "title": "Production Trend", "metrics": ["good_count", "total_count"], "window": "24h", "pos": {"x": 6, "y": 3, "w": 6, "h": 4}},
    {"id": "firing-alerts", "type": "alert-list", "title": "Active Alerts", "pos": {"x": 0, "y": 7, "w": 12, "h": 3}}
  ]
}`

// DefaultLayout returns the provisioned overview layout.
func DefaultLayout() json.RawMessage {
	return json.RawMessage(defaultLayout)
}
