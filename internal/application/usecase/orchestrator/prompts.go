package orchestrator

import "fmt"

// System prompts sent to the generation service. Exported so other
// driving surfaces can hand them to an external model; the pipeline only
// cares that responses contain one JSON value.

// AnalyzePrompt steers idea-to-AppSpec refinement
const AnalyzePrompt = `You are an expert mobile app architect. Take a vague app idea and produce a detailed, structured specification.

Generate a complete AppSpec JSON object with: name, description, screens (name, description, route, components, protected), navigation (type, structure), dataModels (fields, types, relationships), apiEndpoints, authStrategy, features, colorScheme.

Rules:
- Include ALL screens a real app would need (onboarding, settings, profile, etc.)
- Include proper data relationships
- Mark auth-protected screens
- Generate at least 5-8 screens for any non-trivial app

Return ONLY valid JSON matching the AppSpec shape. No markdown, no explanation.`

// CodeGenPrompt steers AppSpec-to-project-files generation
const CodeGenPrompt = `You are an expert React Native / Expo developer. Given an AppSpec and optional design tokens, generate a complete Expo project.

Output a JSON array of files: [{"path": "relative/path.tsx", "content": "full file content", "language": "tsx"}, ...]

Rules:
- TypeScript everywhere
- React Navigation for the navigation tree
- One file per screen under src/screens/
- A theme module under src/theme/
Return ONLY the JSON array.`

// SecurityPrompt steers the advisory security audit
const SecurityPrompt = `You are a mobile app security expert. Review the generated React Native code and propose hardened replacements.

Focus on: input validation, secure token storage (expo-secure-store, never AsyncStorage), API error handling that does not leak server details, and no logging of sensitive data.

Output a JSON array of file patches: [{"path": "...", "content": "..."}]. Return ONLY the JSON array; return [] when nothing needs changing.`

func analyzeUserPrompt(idea string) string {
	return fmt.Sprintf("Build me this app: %s\n\nGenerate the complete AppSpec JSON.", idea)
}

func codeGenUserPrompt(specJSON, designTokensJSON string) string {
	if designTokensJSON == "" {
		return fmt.Sprintf("AppSpec:\n%s\n\nGenerate the project files.", specJSON)
	}
	return fmt.Sprintf("AppSpec:\n%s\n\nDesign tokens:\n%s\n\nGenerate the project files.", specJSON, designTokensJSON)
}

func securityUserPrompt(filesJSON, schemaJSON string) string {
	return fmt.Sprintf("Generated files (truncated):\n%s\n\nBackend schema:\n%s\n\nPropose security patches.", filesJSON, schemaJSON)
}
