package parser

// SystemInstruction is sent as the system message of every extraction request.
const SystemInstruction = "Extract the information about this loan agreement contract."

// SchemaName names the response schema in provider requests.
const SchemaName = "TermsAndConditions"
