package ports

// BattleMetrics counts lifecycle outcomes for the ops endpoint.
type BattleMetrics interface {
	RecordTurnSettled()
	RecordAgentTimeout()
	RecordBattleCompleted()
	RecordBattleErrored()
	RecordDuplicateNotification()
	RecordReportRetry()
}
