// Package credentials manages the stored OpenAI API key.
//
// The file store keeps a single JSON object (default: config/config.json)
// whose api_key entry is the only field this tool interprets. Unknown fields
// are preserved across read-modify-write cycles so the file can be shared
// with other tooling. A blank or missing key means no usable credential;
// clients fail with an auth error before issuing any request.
package credentials
