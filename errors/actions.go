package errors

// ActionType names the behaviour a recovery action triggers. The side that
// owns the UI maps each type to concrete behaviour.
type ActionType string

// Action types.
const (
	ActionRetry           ActionType = "retry"
	ActionReload          ActionType = "reload"
	ActionReconnect       ActionType = "reconnect"
	ActionWorkOffline     ActionType = "work_offline"
	ActionRestartService  ActionType = "restart_service"
	ActionRestartApp      ActionType = "restart_app"
	ActionOpenSettings    ActionType = "open_settings"
	ActionResetData       ActionType = "reset_data"
	ActionSignIn          ActionType = "sign_in"
	ActionChooseFile      ActionType = "choose_file"
	ActionGrantPermission ActionType = "grant_permission"
	ActionFreeSpace       ActionType = "free_space"
	ActionCreateWorkspace ActionType = "create_workspace"
	ActionDisablePlugin   ActionType = "disable_plugin"
	ActionContactSupport  ActionType = "contact_support"
	ActionReportIssue     ActionType = "report_issue"
	ActionDismiss         ActionType = "dismiss"
)

// RecoveryAction describes a user-invokable remediation step.
// It carries no behaviour so it can cross a serialization boundary.
type RecoveryAction struct {
	ID                   string     `json:"id"`
	Type                 ActionType `json:"type"`
	Label                string     `json:"label"`
	Primary              bool       `json:"primary,omitempty"`
	Destructive          bool       `json:"destructive,omitempty"`
	RequiresConfirmation bool       `json:"requiresConfirmation,omitempty"`
}

func action(t ActionType, label string) RecoveryAction {
	return RecoveryAction{ID: string(t), Type: t, Label: label}
}

func primary(a RecoveryAction) RecoveryAction {
	a.Primary = true
	return a
}

func destructive(a RecoveryAction) RecoveryAction {
	a.Destructive = true
	a.RequiresConfirmation = true
	return a
}

// Default action sets. Each call returns a fresh slice.

func retryActions() []RecoveryAction {
	return []RecoveryAction{primary(action(ActionRetry, "Try Again")), action(ActionDismiss, "Dismiss")}
}

func networkActions() []RecoveryAction {
	return []RecoveryAction{
		primary(action(ActionRetry, "Try Again")),
		action(ActionReconnect, "Check Connection"),
		action(ActionWorkOffline, "Work Offline"),
	}
}

func offlineActions() []RecoveryAction {
	return []RecoveryAction{primary(action(ActionReconnect, "Reconnect")), action(ActionDismiss, "Dismiss")}
}

func settingsActions() []RecoveryAction {
	return []RecoveryAction{primary(action(ActionOpenSettings, "Open Settings")), action(ActionRetry, "Try Again")}
}

func serviceActions() []RecoveryAction {
	return []RecoveryAction{
		primary(action(ActionRetry, "Try Again")),
		action(ActionRestartService, "Restart Service"),
		action(ActionReportIssue, "Report Issue"),
	}
}

func dismissActions() []RecoveryAction {
	return []RecoveryAction{primary(action(ActionDismiss, "OK"))}
}

func workspaceActions() []RecoveryAction {
	return []RecoveryAction{primary(action(ActionCreateWorkspace, "Create Workspace")), action(ActionDismiss, "Dismiss")}
}

func resetActions() []RecoveryAction {
	return []RecoveryAction{
		destructive(action(ActionResetData, "Reset Data")),
		primary(action(ActionContactSupport, "Contact Support")),
	}
}

func fileActions() []RecoveryAction {
	return []RecoveryAction{primary(action(ActionChooseFile, "Choose Another File")), action(ActionDismiss, "Dismiss")}
}

func permissionActions() []RecoveryAction {
	return []RecoveryAction{primary(action(ActionGrantPermission, "Check Permissions")), action(ActionDismiss, "Dismiss")}
}

func diskActions() []RecoveryAction {
	return []RecoveryAction{primary(action(ActionFreeSpace, "Free Up Space")), action(ActionRetry, "Try Again")}
}

func signInActions() []RecoveryAction {
	return []RecoveryAction{primary(action(ActionSignIn, "Sign In")), action(ActionDismiss, "Cancel")}
}

func configActions() []RecoveryAction {
	return []RecoveryAction{
		primary(action(ActionOpenSettings, "Open Settings")),
		destructive(action(ActionResetData, "Restore Defaults")),
	}
}

func pluginActions() []RecoveryAction {
	return []RecoveryAction{
		primary(action(ActionReload, "Reload Extension")),
		destructive(action(ActionDisablePlugin, "Disable Extension")),
	}
}

func memoryActions() []RecoveryAction {
	a := primary(action(ActionRestartApp, "Restart Application"))
	a.RequiresConfirmation = true
	return []RecoveryAction{a, action(ActionDismiss, "Dismiss")}
}

func restartActions() []RecoveryAction {
	return []RecoveryAction{primary(action(ActionRestartService, "Restart")), action(ActionReportIssue, "Report Issue")}
}

func reloadActions() []RecoveryAction {
	return []RecoveryAction{primary(action(ActionReload, "Reload")), action(ActionDismiss, "Dismiss")}
}

func supportActions() []RecoveryAction {
	return []RecoveryAction{primary(action(ActionContactSupport, "Contact Support")), action(ActionDismiss, "Dismiss")}
}

func unknownActions() []RecoveryAction {
	return []RecoveryAction{
		primary(action(ActionRetry, "Try Again")),
		action(ActionReportIssue, "Report Issue"),
		action(ActionDismiss, "Dismiss"),
	}
}
