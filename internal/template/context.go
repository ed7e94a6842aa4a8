package template

// Variables available to profile argument templates.
const (
	VarProfileID        = "ProfileID"
	VarName             = "Name"
	VarInstallDirectory = "InstallDirectory"
	VarPublicIP         = "PublicIP"
)

// ProfileContext builds the template data for one profile.
func ProfileContext(profileID, name, installDirectory, publicIP string) map[string]interface{} {
	return map[string]interface{}{
		VarProfileID:        profileID,
		VarName:             name,
		VarInstallDirectory: installDirectory,
		VarPublicIP:         publicIP,
	}
}

// MergeContexts merges multiple contexts into a single context
// Later contexts override values from earlier contexts
func MergeContexts(contexts ...map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for _, ctx := range contexts {
		for key, value := range ctx {
			result[key] = value
		}
	}

	return result
}
