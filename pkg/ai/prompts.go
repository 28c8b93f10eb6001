package ai

// CharacterSystemPrompt is sent ahead of both extraction prompts.
const CharacterSystemPrompt = "You are a careful literary analyst. Report only characters the text itself names, and answer in the requested format."

// CharacterExtractPrompt is used with structured output. The single %s is
// replaced by the text sample, the %d by the maximum number of characters.
const CharacterExtractPrompt = `
# Task Context
You are an assistant specialized in literary analysis. You identify the named characters of a novel or story from an excerpt.

# Background Data
The excerpt below is sampled from the beginning, middle and end of the book. Passages are separated by "[...]".

%s

# Detailed Task Description & Rules
- List people and personified beings that act or speak in the story and are referred to by a proper name.
- Do not list places, organisations, ships, days, months or the narrator's pronouns.
- Use the most complete form of the name that appears in the text as "name" (e.g. "Elizabeth Bennet").
- Put every other form used for the same character into "aliases" (e.g. "Lizzy", "Miss Bennet", "Eliza").
- Titles alone ("Sir", "Mrs.") are never names.
- Never list the same character twice.
- "confidence" is a number between 0 and 1 stating how sure you are that the entry is a character.
- Return at most %d characters, most important first.

# Output Formatting
Return a JSON object with this structure:
{
  "characters": [
    {"name": "<canonical name>", "aliases": ["<variant>"], "confidence": 0.9}
  ]
}
`

// CharacterExtractPromptPlain is used with runtimes that do not support
// structured output. The model is asked for a bare array, which is salvaged
// from the reply with ExtractFirstJSONArray.
const CharacterExtractPromptPlain = `
You identify the named characters in an excerpt of a novel.

Excerpt:
%s

Rules:
- Only people or personified beings referred to by a proper name.
- "name" is the most complete form of the name, "aliases" holds the other forms.
- No places, organisations or titles on their own.
- At most %d entries, most important first.

Answer with a JSON array and nothing else, for example:
[{"name": "Elizabeth Bennet", "aliases": ["Lizzy", "Eliza"], "confidence": 0.9}]
`
