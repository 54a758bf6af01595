package errors

// Category is the coarse classification of an error.
type Category string

// Categories.
const (
	CategoryNetwork        Category = "NETWORK"
	CategoryService        Category = "SERVICE"
	CategoryWorkspace      Category = "WORKSPACE"
	CategoryFilesystem     Category = "FILESYSTEM"
	CategoryDatabase       Category = "DATABASE"
	CategorySecurity       Category = "SECURITY"
	CategoryAuthentication Category = "AUTHENTICATION"
	CategoryConfiguration  Category = "CONFIGURATION"
	CategoryPlugin         Category = "PLUGIN"
	CategorySystem         Category = "SYSTEM"
	CategoryUI             Category = "UI"
	CategoryIPC            Category = "IPC"
	CategoryValidation     Category = "VALIDATION"
	CategoryResource       Category = "RESOURCE"
	CategorySync           Category = "SYNC"
	CategoryStorage        Category = "STORAGE"
	CategoryNativeEngine   Category = "NATIVE_ENGINE"
	CategoryMail           Category = "MAIL"
	CategoryCalendar       Category = "CALENDAR"
	CategoryUnknown        Category = "UNKNOWN"
)

// Severity is the urgency of an error.
type Severity string

// Severities, in increasing order of urgency.
const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Persistent reports whether errors of this severity should stay visible
// until the user acts on them.
func (s Severity) Persistent() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// ErrorCode is the fine-grained, machine-readable identity of an error.
type ErrorCode string

// Network errors.
const (
	CodeNetworkUnreachable  ErrorCode = "NETWORK_UNREACHABLE"
	CodeConnectionTimeout   ErrorCode = "CONNECTION_TIMEOUT"
	CodeConnectionRefused   ErrorCode = "CONNECTION_REFUSED"
	CodeConnectionReset     ErrorCode = "CONNECTION_RESET"
	CodeDNSResolutionFailed ErrorCode = "DNS_RESOLUTION_FAILED"
	CodeProxyError          ErrorCode = "PROXY_ERROR"
	CodeTLSHandshakeFailed  ErrorCode = "SSL_HANDSHAKE_FAILED"
	CodeOffline             ErrorCode = "OFFLINE"
)

// Service errors.
const (
	CodeServiceUnavailable    ErrorCode = "SERVICE_UNAVAILABLE"
	CodeServiceCreationFailed ErrorCode = "SERVICE_CREATION_FAILED"
	CodeServiceLoadFailed     ErrorCode = "SERVICE_LOAD_FAILED"
	CodeServiceCrashed        ErrorCode = "SERVICE_CRASHED"
	CodeServiceNotFound       ErrorCode = "SERVICE_NOT_FOUND"
	CodeServiceTimeout        ErrorCode = "SERVICE_TIMEOUT"
	CodeCircuitOpen           ErrorCode = "CIRCUIT_OPEN"
	CodeRateLimitExceeded     ErrorCode = "RATE_LIMIT_EXCEEDED"
)

// Workspace errors.
const (
	CodeWorkspaceNotFound       ErrorCode = "WORKSPACE_NOT_FOUND"
	CodeWorkspaceCreationFailed ErrorCode = "WORKSPACE_CREATION_FAILED"
	CodeWorkspaceLoadFailed     ErrorCode = "WORKSPACE_LOAD_FAILED"
	CodeWorkspaceSaveFailed     ErrorCode = "WORKSPACE_SAVE_FAILED"
	CodeWorkspaceCorrupted      ErrorCode = "WORKSPACE_CORRUPTED"
)

// Filesystem errors.
const (
	CodeFileNotFound     ErrorCode = "FILE_NOT_FOUND"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	CodeDiskFull         ErrorCode = "DISK_FULL"
	CodeFileLocked       ErrorCode = "FILE_LOCKED"
	CodeFileCorrupted    ErrorCode = "FILE_CORRUPTED"
	CodePathInvalid      ErrorCode = "PATH_INVALID"
)

// Database errors.
const (
	CodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	CodeDatabaseQueryFailed      ErrorCode = "DATABASE_QUERY_FAILED"
	CodeDatabaseLocked           ErrorCode = "DATABASE_LOCKED"
	CodeDatabaseCorrupted        ErrorCode = "DATABASE_CORRUPTED"
	CodeMigrationFailed          ErrorCode = "MIGRATION_FAILED"
)

// Security errors.
const (
	CodeSecurityViolation  ErrorCode = "SECURITY_VIOLATION"
	CodeCertificateInvalid ErrorCode = "CERTIFICATE_INVALID"
	CodeEncryptionFailed   ErrorCode = "ENCRYPTION_FAILED"
	CodeDecryptionFailed   ErrorCode = "DECRYPTION_FAILED"
	CodeUnsafeContent      ErrorCode = "UNSAFE_CONTENT"
)

// Authentication errors.
const (
	CodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	CodeTokenExpired         ErrorCode = "TOKEN_EXPIRED"
	CodeTokenInvalid         ErrorCode = "TOKEN_INVALID"
	CodeAuthorizationDenied  ErrorCode = "AUTHORIZATION_DENIED"
)

// Configuration errors.
const (
	CodeConfigLoadFailed      ErrorCode = "CONFIG_LOAD_FAILED"
	CodeConfigSaveFailed      ErrorCode = "CONFIG_SAVE_FAILED"
	CodeConfigInvalid         ErrorCode = "CONFIG_INVALID"
	CodeConfigMigrationFailed ErrorCode = "CONFIG_MIGRATION_FAILED"
)

// Plugin errors.
const (
	CodePluginLoadFailed   ErrorCode = "PLUGIN_LOAD_FAILED"
	CodePluginCrashed      ErrorCode = "PLUGIN_CRASHED"
	CodePluginIncompatible ErrorCode = "PLUGIN_INCOMPATIBLE"
)

// System errors.
const (
	CodeMemoryExhausted     ErrorCode = "MEMORY_EXHAUSTED"
	CodeProcessCrashed      ErrorCode = "PROCESS_CRASHED"
	CodeResourceExhausted   ErrorCode = "SYSTEM_RESOURCE_EXHAUSTED"
	CodePlatformUnsupported ErrorCode = "PLATFORM_UNSUPPORTED"
)

// UI errors.
const (
	CodeWindowCreationFailed ErrorCode = "WINDOW_CREATION_FAILED"
	CodeRenderFailed         ErrorCode = "RENDER_FAILED"
)

// Process-boundary errors.
const (
	CodeChannelNotFound     ErrorCode = "IPC_CHANNEL_NOT_FOUND"
	CodeSerializationFailed ErrorCode = "IPC_SERIALIZATION_FAILED"
	CodeOperationTimeout    ErrorCode = "OPERATION_TIMEOUT"
	CodeInvalidResponse     ErrorCode = "INVALID_RESPONSE"
	CodePayloadTooLarge     ErrorCode = "PAYLOAD_TOO_LARGE"
)

// Validation errors.
const (
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeMissingField ErrorCode = "MISSING_FIELD"
)

// Resource errors.
const (
	CodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	CodeResourceConflict ErrorCode = "RESOURCE_CONFLICT"
	CodeQuotaExceeded    ErrorCode = "QUOTA_EXCEEDED"
)

// Sync and offline errors.
const (
	CodeSyncFailed    ErrorCode = "SYNC_FAILED"
	CodeSyncConflict  ErrorCode = "SYNC_CONFLICT"
	CodeOfflineQueued ErrorCode = "OFFLINE_QUEUED"
	CodeReplayFailed  ErrorCode = "REPLAY_FAILED"
)

// Local storage errors.
const (
	CodeStorageReadFailed     ErrorCode = "STORAGE_READ_FAILED"
	CodeStorageWriteFailed    ErrorCode = "STORAGE_WRITE_FAILED"
	CodeLockAcquisitionFailed ErrorCode = "LOCK_ACQUISITION_FAILED"
)

// Native engine errors.
const (
	CodeNativeEngineUnavailable   ErrorCode = "NATIVE_ENGINE_UNAVAILABLE"
	CodeNativeEngineCrashed       ErrorCode = "NATIVE_ENGINE_CRASHED"
	CodeNativeEngineProtocolError ErrorCode = "NATIVE_ENGINE_PROTOCOL_ERROR"
)

// Mail and calendar errors.
const (
	CodeMailSendFailed     ErrorCode = "MAIL_SEND_FAILED"
	CodeMailSyncFailed     ErrorCode = "MAIL_SYNC_FAILED"
	CodeMailboxNotFound    ErrorCode = "MAILBOX_NOT_FOUND"
	CodeCalendarSyncFailed ErrorCode = "CALENDAR_SYNC_FAILED"
	CodeEventConflict      ErrorCode = "EVENT_CONFLICT"
)

// CodeUnknown is the classification of last resort.
const CodeUnknown ErrorCode = "UNKNOWN_ERROR"

// codeDef is the fixed classification bound to a code.
type codeDef struct {
	category  Category
	severity  Severity
	retryable bool
	message   string
	actions   func() []RecoveryAction
}

var codeDefs = map[ErrorCode]codeDef{
	CodeNetworkUnreachable:  {CategoryNetwork, SeverityMedium, true, "You appear to be offline. Check your internet connection.", networkActions},
	CodeConnectionTimeout:   {CategoryNetwork, SeverityMedium, true, "The connection timed out. Please try again.", networkActions},
	CodeConnectionRefused:   {CategoryNetwork, SeverityMedium, true, "The server refused the connection. Please try again later.", networkActions},
	CodeConnectionReset:     {CategoryNetwork, SeverityMedium, true, "The connection was interrupted. Please try again.", networkActions},
	CodeDNSResolutionFailed: {CategoryNetwork, SeverityMedium, true, "The server address could not be found. Check your connection.", networkActions},
	CodeProxyError:          {CategoryNetwork, SeverityMedium, true, "The proxy server is not responding. Check your proxy settings.", settingsActions},
	CodeTLSHandshakeFailed:  {CategoryNetwork, SeverityHigh, false, "A secure connection could not be established.", supportActions},
	CodeOffline:             {CategoryNetwork, SeverityLow, true, "You are working offline. Changes will sync when you reconnect.", offlineActions},

	CodeServiceUnavailable:    {CategoryService, SeverityMedium, true, "This service is temporarily unavailable. Please try again.", retryActions},
	CodeServiceCreationFailed: {CategoryService, SeverityHigh, true, "The service could not be started.", serviceActions},
	CodeServiceLoadFailed:     {CategoryService, SeverityMedium, true, "The service failed to load.", serviceActions},
	CodeServiceCrashed:        {CategoryService, SeverityHigh, true, "The service stopped unexpectedly.", serviceActions},
	CodeServiceNotFound:       {CategoryService, SeverityMedium, false, "The requested service could not be found.", dismissActions},
	CodeServiceTimeout:        {CategoryService, SeverityMedium, true, "The service is taking too long to respond.", retryActions},
	CodeCircuitOpen:           {CategoryService, SeverityMedium, false, "This feature is paused after repeated failures. It will retry automatically shortly.", dismissActions},
	CodeRateLimitExceeded:     {CategoryService, SeverityLow, true, "Too many requests. Please wait a moment and try again.", dismissActions},

	CodeWorkspaceNotFound:       {CategoryWorkspace, SeverityMedium, false, "The workspace could not be found.", workspaceActions},
	CodeWorkspaceCreationFailed: {CategoryWorkspace, SeverityHigh, true, "The workspace could not be created.", retryActions},
	CodeWorkspaceLoadFailed:     {CategoryWorkspace, SeverityHigh, true, "The workspace failed to load.", retryActions},
	CodeWorkspaceSaveFailed:     {CategoryWorkspace, SeverityHigh, true, "Your workspace changes could not be saved.", retryActions},
	CodeWorkspaceCorrupted:      {CategoryWorkspace, SeverityCritical, false, "The workspace data is damaged.", resetActions},

	CodeFileNotFound:     {CategoryFilesystem, SeverityMedium, false, "The file could not be found.", fileActions},
	CodePermissionDenied: {CategoryFilesystem, SeverityHigh, false, "Permission was denied. Check that the application can access this location.", permissionActions},
	CodeDiskFull:         {CategoryFilesystem, SeverityCritical, false, "Your disk is full. Free up some space and try again.", diskActions},
	CodeFileLocked:       {CategoryFilesystem, SeverityMedium, true, "The file is in use by another program.", retryActions},
	CodeFileCorrupted:    {CategoryFilesystem, SeverityHigh, false, "The file is damaged and cannot be read.", supportActions},
	CodePathInvalid:      {CategoryFilesystem, SeverityMedium, false, "The file location is not valid.", fileActions},

	CodeDatabaseConnectionFailed: {CategoryDatabase, SeverityHigh, true, "Local data could not be opened. Please try again.", retryActions},
	CodeDatabaseQueryFailed:      {CategoryDatabase, SeverityMedium, true, "Your data could not be loaded. Please try again.", retryActions},
	CodeDatabaseLocked:           {CategoryDatabase, SeverityMedium, true, "Local data is busy. Please try again in a moment.", retryActions},
	CodeDatabaseCorrupted:        {CategoryDatabase, SeverityCritical, false, "Local data is damaged and needs to be rebuilt.", resetActions},
	CodeMigrationFailed:          {CategoryDatabase, SeverityCritical, false, "Local data could not be upgraded.", supportActions},

	CodeSecurityViolation:  {CategorySecurity, SeverityCritical, false, "This action was blocked for your security.", supportActions},
	CodeCertificateInvalid: {CategorySecurity, SeverityHigh, false, "The server's security certificate is not trusted.", supportActions},
	CodeEncryptionFailed:   {CategorySecurity, SeverityHigh, false, "Your data could not be protected.", supportActions},
	CodeDecryptionFailed:   {CategorySecurity, SeverityHigh, false, "Protected data could not be read.", supportActions},
	CodeUnsafeContent:      {CategorySecurity, SeverityMedium, false, "Some content was blocked because it looked unsafe.", dismissActions},

	CodeAuthenticationFailed: {CategoryAuthentication, SeverityHigh, false, "Sign-in failed. Please check your credentials.", signInActions},
	CodeTokenExpired:         {CategoryAuthentication, SeverityMedium, false, "Your session has expired. Please sign in again.", signInActions},
	CodeTokenInvalid:         {CategoryAuthentication, SeverityHigh, false, "Your session is no longer valid. Please sign in again.", signInActions},
	CodeAuthorizationDenied:  {CategoryAuthentication, SeverityMedium, false, "You don't have permission to do this.", dismissActions},

	CodeConfigLoadFailed:      {CategoryConfiguration, SeverityCritical, false, "Settings could not be loaded.", configActions},
	CodeConfigSaveFailed:      {CategoryConfiguration, SeverityHigh, false, "Settings could not be saved.", configActions},
	CodeConfigInvalid:         {CategoryConfiguration, SeverityHigh, false, "Some settings are not valid.", configActions},
	CodeConfigMigrationFailed: {CategoryConfiguration, SeverityCritical, false, "Settings from a previous version could not be upgraded.", configActions},

	CodePluginLoadFailed:   {CategoryPlugin, SeverityMedium, false, "An extension failed to load.", pluginActions},
	CodePluginCrashed:      {CategoryPlugin, SeverityMedium, true, "An extension stopped unexpectedly.", pluginActions},
	CodePluginIncompatible: {CategoryPlugin, SeverityLow, false, "An extension is not compatible with this version.", pluginActions},

	CodeMemoryExhausted:     {CategorySystem, SeverityCritical, false, "The application is running low on memory.", memoryActions},
	CodeProcessCrashed:      {CategorySystem, SeverityHigh, true, "A background process stopped unexpectedly.", restartActions},
	CodeResourceExhausted:   {CategorySystem, SeverityHigh, true, "System resources are running low.", restartActions},
	CodePlatformUnsupported: {CategorySystem, SeverityHigh, false, "This feature is not supported on your system.", dismissActions},

	CodeWindowCreationFailed: {CategoryUI, SeverityHigh, true, "A window could not be opened.", restartActions},
	CodeRenderFailed:         {CategoryUI, SeverityMedium, true, "This view could not be displayed.", reloadActions},

	CodeChannelNotFound:     {CategoryIPC, SeverityHigh, false, "This action is not available.", supportActions},
	CodeSerializationFailed: {CategoryIPC, SeverityMedium, false, "The response could not be processed.", supportActions},
	CodeOperationTimeout:    {CategoryIPC, SeverityMedium, true, "The operation took too long. Please try again.", retryActions},
	CodeInvalidResponse:     {CategoryIPC, SeverityMedium, true, "An unexpected response was received.", retryActions},
	CodePayloadTooLarge:     {CategoryIPC, SeverityMedium, false, "The data was too large to transfer.", dismissActions},

	CodeInvalidInput: {CategoryValidation, SeverityLow, false, "Some of the information entered is not valid.", dismissActions},
	CodeMissingField: {CategoryValidation, SeverityLow, false, "Some required information is missing.", dismissActions},

	CodeResourceNotFound: {CategoryResource, SeverityMedium, false, "The requested item could not be found.", dismissActions},
	CodeResourceConflict: {CategoryResource, SeverityMedium, false, "This item was changed somewhere else.", reloadActions},
	CodeQuotaExceeded:    {CategoryResource, SeverityHigh, false, "Your storage quota has been reached.", dismissActions},

	CodeSyncFailed:    {CategorySync, SeverityMedium, true, "Sync failed. We'll keep trying in the background.", retryActions},
	CodeSyncConflict:  {CategorySync, SeverityMedium, false, "Changes conflict with a newer version.", reloadActions},
	CodeOfflineQueued: {CategorySync, SeverityLow, false, "You're offline. This will be sent when you reconnect.", dismissActions},
	CodeReplayFailed:  {CategorySync, SeverityMedium, true, "Some offline changes could not be sent yet.", retryActions},

	CodeStorageReadFailed:     {CategoryStorage, SeverityMedium, true, "Saved data could not be read.", retryActions},
	CodeStorageWriteFailed:    {CategoryStorage, SeverityHigh, true, "Data could not be saved locally.", diskActions},
	CodeLockAcquisitionFailed: {CategoryStorage, SeverityMedium, true, "Another window is syncing. Please try again shortly.", retryActions},

	CodeNativeEngineUnavailable:   {CategoryNativeEngine, SeverityCritical, true, "The mail engine is not running.", restartActions},
	CodeNativeEngineCrashed:       {CategoryNativeEngine, SeverityCritical, true, "The mail engine stopped unexpectedly.", restartActions},
	CodeNativeEngineProtocolError: {CategoryNativeEngine, SeverityHigh, false, "The mail engine sent an unexpected reply.", supportActions},

	CodeMailSendFailed:     {CategoryMail, SeverityHigh, true, "Your message could not be sent.", retryActions},
	CodeMailSyncFailed:     {CategoryMail, SeverityMedium, true, "New mail could not be downloaded.", retryActions},
	CodeMailboxNotFound:    {CategoryMail, SeverityMedium, false, "The mailbox could not be found.", dismissActions},
	CodeCalendarSyncFailed: {CategoryCalendar, SeverityMedium, true, "Your calendar could not be updated.", retryActions},
	CodeEventConflict:      {CategoryCalendar, SeverityLow, false, "This event overlaps with another event.", dismissActions},

	CodeUnknown: {CategoryUnknown, SeverityMedium, true, "Something went wrong. Please try again.", unknownActions},
}

func defFor(code ErrorCode) codeDef {
	if s, ok := codeDefs[code]; ok {
		return s
	}
	return codeDefs[CodeUnknown]
}

// CategoryOf returns the category bound to code, or CategoryUnknown.
func CategoryOf(code ErrorCode) Category {
	return defFor(code).category
}

// IsRetryableCode reports whether errors with code are retryable by default.
func IsRetryableCode(code ErrorCode) bool {
	return defFor(code).retryable
}

// Codes returns every registered error code.
func Codes() []ErrorCode {
	out := make([]ErrorCode, 0, len(codeDefs))
	for c := range codeDefs {
		out = append(out, c)
	}
	return out
}
