// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package store

import "fmt"

// Document path layout. Every persisted record lives under one of these
// path families; keeping the builders in one place keeps the layout
// greppable.
const (
	reportPrefix            = "reports/"
	userPrefix              = "users/"
	userReportTrackPrefix   = "user_reports/"
	alertPrefsPrefix        = "user_alert_preferences/"
	mapSettingsPrefix       = "user_map_settings/"
	notificationPrefix      = "user_notifications/"
	publicDataPrefix        = "public_data_cache/"
	aiUsagePrefix           = "ai_usage_tracking/hourly/"
	aiCachePrefix           = "ai_analysis_cache/"
	auditLogPrefix          = "audit_logs/"
	safeZonePrefix          = "safe_zones/"
	revokedTokenPrefix      = "revoked_tokens/"
	credentialPrefix        = "credentials/"
)

// ReportPath returns reports/{id}.
func ReportPath(id string) string { return reportPrefix + id }

// ReportPrefix returns the prefix for listing all reports.
func ReportPrefix() string { return reportPrefix }

// UserPath returns users/{userID}.
func UserPath(userID string) string { return userPrefix + userID }

// CredibilityHistoryPath returns users/{userID}/credibility_history.
func CredibilityHistoryPath(userID string) string {
	return userPrefix + userID + "/credibility_history"
}

// UserReportTrackPath returns user_reports/{userID}/reports/{reportID}.
func UserReportTrackPath(userID, reportID string) string {
	return fmt.Sprintf("%s%s/reports/%s", userReportTrackPrefix, userID, reportID)
}

// UserReportTrackPrefix returns the listing prefix for one user's reports.
func UserReportTrackPrefix(userID string) string {
	return fmt.Sprintf("%s%s/reports/", userReportTrackPrefix, userID)
}

// AlertPreferencesPath returns user_alert_preferences/{userID}.
func AlertPreferencesPath(userID string) string { return alertPrefsPrefix + userID }

// MapSettingsPath returns user_map_settings/{userID}.
func MapSettingsPath(userID string) string { return mapSettingsPrefix + userID }

// NotificationPath returns user_notifications/{userID}/alerts/{alertID}.
func NotificationPath(userID, alertID string) string {
	return fmt.Sprintf("%s%s/alerts/%s", notificationPrefix, userID, alertID)
}

// NotificationPrefix returns the listing prefix for one user's alerts.
func NotificationPrefix(userID string) string {
	return fmt.Sprintf("%s%s/alerts/", notificationPrefix, userID)
}

// FeedCachePath returns public_data_cache/{feedType}/{section}; section is
// "metadata" or "data".
func FeedCachePath(feedType, section string) string {
	return publicDataPrefix + feedType + "/" + section
}

// AIUsagePath returns ai_usage_tracking/hourly/{YYYY-MM-DD-HH}.
func AIUsagePath(bucket string) string { return aiUsagePrefix + bucket }

// AIUsagePrefix returns the prefix for reaping stale hour buckets.
func AIUsagePrefix() string { return aiUsagePrefix }

// AICachePath returns ai_analysis_cache/{contentHash}.
func AICachePath(contentHash string) string { return aiCachePrefix + contentHash }

// AuditLogPath returns audit_logs/{operationID}.
func AuditLogPath(operationID string) string { return auditLogPrefix + operationID }

// SafeZonePath returns safe_zones/{id}.
func SafeZonePath(id string) string { return safeZonePrefix + id }

// SafeZonePrefix returns the listing prefix for safe zones.
func SafeZonePrefix() string { return safeZonePrefix }

// RevokedTokenPath returns revoked_tokens/{jti}.
func RevokedTokenPath(jti string) string { return revokedTokenPrefix + jti }

// CredentialPath returns credentials/{emailKey}, where emailKey is the
// hex SHA-256 of the normalized email. Keying by email hash makes login
// a single lookup without storing the address in a key.
func CredentialPath(emailKey string) string { return credentialPrefix + emailKey }
