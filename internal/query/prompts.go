package query

import "fmt"

// Prompt templates are pure functions of their typed inputs so they can be
// tested and swapped without touching call or parse logic.

func classifyPrompt(question, conversationContext string) string {
	return fmt.Sprintf(`You are a query classifier for a personal expense tracking system. Classify this user query:

Query: %q

Recent conversation context:
%s

Classify based on these criteria:

COMPLEXITY LEVELS:
1. Simple data retrieval (basic SQL queries)
2. Context-aware follow-ups (require conversation history)
3. Complex analysis (insights, recommendations, patterns)

AGENT TYPES:
- retrieval: Direct database queries, simple calculations
- analysis: Complex analysis, recommendations, insights
- hybrid: Requires both data retrieval and analysis

Return ONLY a JSON object:
{
    "agent": "retrieval|analysis|hybrid",
    "complexity": 1|2|3,
    "requires_context": true|false,
    "query_type": "data_retrieval|analysis|recommendation|follow_up",
    "reasoning": "Brief explanation of classification"
}`, question, conversationContext)
}

func enhancedQuestion(conversationContext, question string) string {
	return fmt.Sprintf(`Based on our conversation:
%s

Current question: %s

Please provide a complete answer considering the conversation context.`, conversationContext, question)
}

func validatePrompt(question string) string {
	return fmt.Sprintf(`You are a filter AI. Decide if the user's question is relevant to personal receipt data.
Answer exactly "YES" or "NO".

Examples:
Q: How much did I spend on food this month?
A: YES

Q: What's the weather today?
A: NO

Q: Show me all receipts from Amazon.
A: YES

Q: Tell me a joke.
A: NO

User question:
%s`, question)
}

func sqlPrompt(question, userID string) string {
	return fmt.Sprintf(`### Task
Generate a single valid SQL query answering the question below for the `+"`receipts`"+` (and, if needed, `+"`receipt_items`"+`) tables, filtering by `+"`user_id = '%s'`"+`.

Question:
%s

### Schema
CREATE TABLE receipts (
  id               SERIAL PRIMARY KEY,
  user_id          UUID,
  merchant_name    TEXT,
  transaction_date DATE,
  subtotal_amount  NUMERIC(12,2),
  tax_amount       NUMERIC(12,2),
  total_amount     NUMERIC(12,2),
  expense_category TEXT,
  payment_method   TEXT,
  created_at       TIMESTAMPTZ
);

CREATE TABLE receipt_items (
  id          SERIAL PRIMARY KEY,
  receipt_id  INTEGER,
  description TEXT,
  unit_price  NUMERIC(12,2),
  quantity    NUMERIC(12,2)
);

### Answer
Provide ONLY the SQL query (no markdown, no commentary).`, userID, question)
}

func explainPrompt(question, sql, rowsJSON string) string {
	return fmt.Sprintf(`You are an AI assistant. The user asked: %q.

You ran this SQL:
%s

Returned rows:
%s

Provide a concise, friendly summary directly answering the user's question. If no data, say "No records found." Output only the summary.`, question, sql, rowsJSON)
}

func analysisPrompt(question, conversationContext, dataContext string) string {
	return fmt.Sprintf(`You are an AI financial advisor analyzing personal expense data.

User Question: %q

Recent Conversation:
%s

Expense Data Context:
%s

Provide a comprehensive analysis including:
1. Direct answer to the question
2. Key insights and patterns
3. Actionable recommendations
4. Specific suggestions for optimization

Be conversational, helpful, and specific. Use actual numbers from the data.`, question, conversationContext, dataContext)
}
