package core

// MetaSystemPrompt frames every helper request. Replies are consumed by code,
// so the backend is told to skip commentary.
const MetaSystemPrompt = `You are a writing assistant inside a prompt engineering workbench.
Your reply is read by a program, not a person. Follow the requested output format exactly.
Do not add explanations, greetings, or notes.`

const titlePrompt = `Write a short title (at most 8 words) for the prompt below.
Reply with the title only, no quotes.

PROMPT:
%s`

const descriptionPrompt = `Write a one or two sentence description of what the prompt below does and when to use it.
Reply with the description only.

PROMPT:
%s`

const variationPrompt = `Rewrite the prompt below as a single alternative phrasing that keeps the same intent.
Keep every placeholder written in curly braces (for example {text}) exactly as it appears.
Reply with the rewritten prompt only.

PROMPT:
%s`

const variationsPrompt = `Rewrite the prompt below as %d alternative phrasings that keep the same intent.
Keep every placeholder written in curly braces (for example {text}) exactly as it appears.

Return a JSON array of strings inside a fenced code block:
` + "```json" + `
["first alternative", "second alternative"]
` + "```" + `

PROMPT:
%s`

const templatePrompt = `Turn the request below into a reusable prompt template.
Use placeholders in curly braces (for example {topic}) for the parts a user would change.

Return a JSON object inside a fenced code block:
` + "```json" + `
{"name": "...", "description": "...", "content": "..."}
` + "```" + `

REQUEST:
%s`
