package types

// Standard table names for Tx.Table.
const (
	TableLeads        = "leads"
	TableTasks        = "tasks"
	TableEvents       = "events"
	TableDailyMetrics = "dailyMetrics"
)

// StandardTableNames lists all standard table names for enumeration.
var StandardTableNames = []string{
	TableLeads,
	TableTasks,
	TableEvents,
	TableDailyMetrics,
}
