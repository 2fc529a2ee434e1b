/*
	Project: Mentora Duels - real-time 1v1 quiz duels between students.

	apps/api    HTTP API (echo)
	apps/admin  operator CLI (migrations, request sweeping, stats, live leaderboard)
	core        domain: duels, anti-abuse guard, students, leaderboard diffs
	services    logging, notifications, metrics
	storage     postgres (sqlx, sqlboiler), redis, in-memory
*/
package mentora
