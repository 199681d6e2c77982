package mcptools

import "github.com/coredock/coredock/pkg/analysis"

// defaultAdvisories is the built-in CVE dataset analyze_security falls
// back to when the deployment supplies none. Module names match what the
// shared-framework layout loads into a process.
var defaultAdvisories = []analysis.CVE{
	{
		ID:          "CVE-2024-0057",
		Module:      "system.security.cryptography.dll",
		FixedIn:     "8.0.1",
		Severity:    "high",
		Description: "X.509 chain building validation bypass",
	},
	{
		ID:          "CVE-2024-21386",
		Module:      "microsoft.aspnetcore.signalr.core.dll",
		FixedIn:     "8.0.2",
		Severity:    "high",
		Description: "SignalR denial of service",
	},
	{
		ID:          "CVE-2024-30105",
		Module:      "system.text.json.dll",
		FixedIn:     "8.0.7",
		Severity:    "high",
		Description: "JsonObject deep nesting denial of service",
	},
	{
		ID:          "CVE-2024-38095",
		Module:      "system.formats.asn1.dll",
		FixedIn:     "8.0.7",
		Severity:    "high",
		Description: "ASN.1 decoding denial of service",
	},
	{
		ID:          "CVE-2023-21808",
		Module:      "libcoreclr.so",
		FixedIn:     "7.0.3",
		Severity:    "critical",
		Description: "Runtime remote code execution",
	},
	{
		ID:          "CVE-2023-21808",
		Module:      "coreclr.dll",
		FixedIn:     "7.0.3",
		Severity:    "critical",
		Description: "Runtime remote code execution",
	},
}
