package tasks

import "legal-docs/internal/prompt"

const (
	VarContractText = "contract_text"
	VarChunk        = "chunk"
	VarUserQuery    = "user_query"
)

// KeyClauses are requested from the model, in response order.
var KeyClauses = []string{
	"Effective Date",
	"Service Provider",
	"Client",
	"Scope of Services",
	"Compensation",
	"Term and Termination",
	"Confidentiality",
	"Intellectual Property Rights",
	"Limitation of Liability",
	"Dispute Resolution",
	"Governing Law",
}

var clauseTemplate = prompt.MustNew("extract_clauses", `
Extract the following key clauses from the provided contract text:

1. Effective Date
2. Service Provider
3. Client
4. Scope of Services
5. Compensation
6. Term and Termination
7. Confidentiality
8. Intellectual Property Rights
9. Limitation of Liability
10. Dispute Resolution
11. Governing Law

Contract Text:
{contract_text}

Please respond in the following format:
Effective Date: [Effective Date]
Service Provider: [Service Provider]
Client: [Client]
Scope of Services: [Scope of Services]
Compensation: [Compensation]
Term and Termination: [Term and Termination]
Confidentiality: [Confidentiality]
Intellectual Property Rights: [Intellectual Property Rights]
Limitation of Liability: [Limitation of Liability]
Dispute Resolution: [Dispute Resolution]
Governing Law: [Governing Law]
`)

var summaryTemplate = prompt.MustNew("summarize", `
Summarize the following legal document:

Document Text:
{contract_text}

Please provide a concise summary of the main points and clauses.
`)

var draftTemplate = prompt.MustNew("draft", `
Prepare an initial draft based on the following user query:
Initial Draft for the given {chunk}
User Query:
{user_query}

Please create an initial draft that addresses the query.
`)
