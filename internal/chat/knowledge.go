package chat

// Topic is one row of the keyword table.
type Topic struct {
	Name     string
	Keywords []string
	Answer   string
}

// Topics is scanned in order; on equal match counts the earlier topic wins.
var Topics = []Topic{
	{
		Name:     "tools",
		Keywords: []string{"tools", "software", "apps", "platforms", "saas"},
		Answer:   "Most startups use 12+ different tools including Slack, Asana, Notion, Linear, BambooHR, Google Workspace, Zoom, GitHub, and more. Each tool costs money and requires context switching, leading to significant productivity loss.",
	},
	{
		Name:     "cost",
		Keywords: []string{"cost", "price", "expensive", "money", "spend", "budget"},
		Answer:   "The average startup spends $47,000 per year on software tools. But the hidden cost is even higher - wasted time, context switching, and lost information cost far more than the subscription fees.",
	},
	{
		Name:     "time",
		Keywords: []string{"time", "hours", "productivity", "waste", "lost", "switching"},
		Answer:   "Studies show that startup teams lose 15+ hours per week to context switching between tools. That's nearly 2 full workdays per person, every week! This time is spent searching for information, switching between apps, and dealing with fragmented workflows.",
	},
	{
		Name:     "searching",
		Keywords: []string{"search", "find", "looking", "locate", "where"},
		Answer:   "Employees spend an average of 2 hours per day just searching for information across different tools. 'Was that decision in Linear? Notion? Email? Slack?' This constant treasure hunt kills momentum and frustrates teams.",
	},
	{
		Name:     "context",
		Keywords: []string{"context", "switching", "jumping", "between"},
		Answer:   "Context switching between tools can reduce productivity by up to 40%. Every time you switch from Slack to Notion to Asana, your brain needs time to reorient. These micro-interruptions add up to massive productivity loss.",
	},
	{
		Name:     "onboarding",
		Keywords: []string{"onboarding", "new hire", "training", "learning"},
		Answer:   "New hires typically receive logins to 15+ different tools. It takes weeks before they know where to find information or how to complete basic workflows. This slows ramp-up time and impacts team velocity.",
	},
	{
		Name:     "solution",
		Keywords: []string{"solution", "fix", "solve", "help", "startup os", "startupos"},
		Answer:   "StartUp OS consolidates your essential workflows into one unified platform. Instead of juggling 12+ tools, you get decisions, tasks, announcements, people ops, and insights in a single workspace. We integrate with Slack and email so you don't lose your existing workflows - we just make them more powerful.",
	},
	{
		Name:     "integrations",
		Keywords: []string{"integrate", "slack", "gmail", "outlook", "connect"},
		Answer:   "StartUp OS connects with the tools you already use - Slack, Gmail, and Outlook. We capture important moments from these platforms and surface them in your unified dashboard. Turn Slack messages into decisions, emails into tasks, without leaving your flow.",
	},
	{
		Name:     "features",
		Keywords: []string{"features", "what does", "capabilities", "modules"},
		Answer:   "StartUp OS includes 6 core modules: Decision Engine (document and track decisions), Smart Tasks (AI-powered prioritization), Team Updates (broadcast communication), People Ops (PTO, onboarding, org charts), Insights (team velocity metrics), and Enterprise Security (SOC 2, GDPR compliant).",
	},
	{
		Name:     "pricing",
		Keywords: []string{"pricing", "how much", "plan", "free", "trial"},
		Answer:   "We're currently in early access! Join our waitlist to lock in founder rates and get exclusive early access pricing when we launch. We'll have generous free tiers for small teams and fair scaling as you grow.",
	},
}

// Greetings is the pool a greeting reply is drawn from.
var Greetings = []string{
	"Hi there! I'm here to help you understand how tool sprawl affects startups. Ask me anything!",
	"Hello! Want to know how much time your startup loses to context switching? Ask away!",
	"Hey! I can help you understand the true cost of managing multiple tools. What would you like to know?",
}

// Fallback is returned when no keyword matches.
const Fallback = "That's a great question! I can help you understand:\n\n• How many tools startups typically use\n• The true cost of tool sprawl\n• Time lost to context switching\n• How StartUp OS solves these problems\n\nWhat would you like to know more about?"

// Welcome is the first bot message of every conversation.
const Welcome = "Hi! I'm here to help you understand how tool sprawl impacts startups. Ask me about:\n\n• Tools & software costs\n• Time lost to context switching\n• How StartUp OS can help\n\nWhat would you like to know?"

// Suggestions are the chip shortcuts shown under the input.
var Suggestions = []string{
	"How much do tools cost?",
	"Time lost searching?",
	"What is StartUp OS?",
}
