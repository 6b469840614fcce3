package ai

const (
	// CitizenPostPrompt screens a citizen submission before it is published.
	CitizenPostPrompt = `You are an AI assistant responsible for analyzing citizen posts for relevance to public policy, potential duplicates, and inappropriate language.

Analyze the following citizen post:

Title: %s
Description: %s
Topic Tags: %s
Media URL: %s

Determine the following:
- Whether the post is relevant to public policy (isRelevant).
- Whether the post is a duplicate of an existing post (isDuplicate).
- Whether the post language is appropriate (isAppropriate).

Provide a short summary of your analysis (summary).
Output in JSON format.`

	// CommentModerationPrompt screens a comment before it is stored.
	CommentModerationPrompt = `You are an AI moderator for a public forum. Your task is to analyze user comments for inappropriate content.

Inappropriate content includes, but is not limited to:
- Hate speech (racism, sexism, homophobia, etc.)
- Personal attacks or harassment
- Profanity or vulgar language
- Spam or advertising
- Spreading misinformation

Analyze the following comment:
%q

Determine if the comment's language is appropriate for a public forum.
If it is inappropriate, set isAppropriate to false and provide a brief, neutral reason.
If it is appropriate, set isAppropriate to true.
Output in JSON format.`

	// SentimentPrompt classifies free text into a sentiment trend.
	SentimentPrompt = `Analyze the following text and determine the overall sentiment trend. The sentiment trend should be one of the following: "Mostly Agree", "Mixed", or "Mostly Disagree".

Text: %s

Sentiment Trend:`

	// TrendingPrompt ranks a batch of posts for the trending feed.
	TrendingPrompt = `You are an expert in ranking social media posts for trending feeds.
Given the following array of posts, rank them based on their relevance, engagement, and potential virality.
Consider factors such as the number of votes (agree, mixed, disagree), the topic tags, and the AI-generated summary.
Provide a ranking score for each post and a brief reason for the score.

Posts:
%s

Format the output as a JSON array of objects, where each object contains the postId, rankScore (a number between 0 and 1), and a reason for the ranking.`

	// CommentSummaryPrompt condenses the discussion under a post.
	CommentSummaryPrompt = `You are an expert at summarizing discussions. Analyze the following list of user comments for a policy proposal. Many comments may come from users who disagree or have mixed feelings.

Your task is to create a neutral, one-paragraph summary that captures the main arguments, recurring themes, and overall sentiment expressed in the comments.

Comments:
%s

Based on these comments, provide a summary.`

	// PostSummaryPrompt turns a proposal into short bullet points.
	PostSummaryPrompt = `Summarize the following post content into 2-3 bullet points.

Title: %s
Description: %s

Summary:`

	// PublicOpinionPrompt describes the vote split of a post in one sentence.
	PublicOpinionPrompt = `Summarize the public opinion on the following post in a single, neutral sentence.

Title: %s
Description: %s
Agree Count: %d
Disagree Count: %d

Summary:`
)
