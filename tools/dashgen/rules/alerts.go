package rules

// AlertRules covers service health, token lifetime, sync quality and sink
// quota.
func AlertRules() PrometheusRule {
	return newResource("mps-alerts",
		alert("MpsDown",
			`absent(up{job="marketplace-sync"})`, "2m", "critical",
			"Marketplace sync is down",
			"The marketplace-sync job has been absent for more than 2 minutes."),
		alert("MpsReadinessDown",
			`mps_readyz_up == 0`, "2m", "critical",
			"Marketplace sync readiness check is failing",
			"The database behind the job store has been unreachable for more than 2 minutes."),
		alert("MpsHighErrorRate",
			`mps:http_errors:rate5m / mps:http_requests:rate5m > 0.05`, "5m", "warning",
			"High HTTP error rate on marketplace sync",
			"More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes."),
		alert("MpsReauthRequired",
			`mps_token_refresh_expiry_timestamp < time()`, "0m", "critical",
			"A marketplace needs to be reauthorized",
			"The refresh token of {{ $labels.platform }} is missing or expired. Grant access again and run token authorize."),
		alert("MpsRefreshTokenExpiring",
			`mps_token_refresh_expiry_timestamp > time() and mps_token_refresh_expiry_timestamp - time() < 3 * 86400`,
			"10m", "warning",
			"A marketplace refresh token expires within 3 days",
			"The refresh token of {{ $labels.platform }} expires soon. Reauthorize before it lapses."),
		alert("MpsTokenRefreshFailing",
			`increase(mps_token_refreshes_total{result="failure"}[15m]) > 0`, "15m", "warning",
			"Token refreshes are failing",
			"Refresh exchanges for {{ $labels.platform }} have failed repeatedly for 15 minutes."),
		alert("MpsSyncFailures",
			`increase(mps_sync_runs_total{result="failure"}[1h]) > 0`, "0m", "warning",
			"A sync run failed",
			"A {{ $labels.kind }} sync for {{ $labels.platform }} failed in the last hour."),
		alert("MpsFetchOmissions",
			`increase(mps_fetch_omissions_total[1h]) > 0`, "0m", "warning",
			"A sync skipped part of its time range",
			"Windows of {{ $labels.endpoint }} were skipped after exhausting retries. The affected sheet is incomplete."),
		alert("MpsPlatformRateLimited",
			`mps:platform_calls:rate5m{outcome="rate_limited"} > 0`, "10m", "warning",
			"Marketplace API is rate limiting",
			"{{ $labels.platform }} has been answering with rate limit errors for 10 minutes."),
		alert("MpsSinkQuotaExhausted",
			`mps:sink_quota:rate5m > 0`, "15m", "warning",
			"Spreadsheet quota is exhausted",
			"Sheet writes have hit quota errors for 15 minutes despite credential rotation."),
		alert("MpsNotificationFailures",
			`increase(mps_notification_failures_total[15m]) > 0`, "1m", "warning",
			"Notification delivery failures detected",
			"One or more operator notifications (Discord webhooks) have failed to send."),
	)
}
