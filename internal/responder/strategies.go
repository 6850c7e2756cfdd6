package responder

// builtinStrategies are the reply rule tables for the shipped scenarios,
// keyed by scenario id. Rules for the customer side drive the AI assistant;
// rules for the assistant side drive the AI customer.
var builtinStrategies = map[string]Strategy{
	"pizza-order": {
		CustomerRules: []Rule{
			{Keywords: []string{"pizza"}, Reply: "Great! What size would you like, and what toppings?"},
			{Keywords: []string{"size", "large", "medium", "small"}, Reply: "Got it. Would you like any drinks or sides with that?"},
		},
		CustomerFallback: "Perfect! Can I get your delivery address and phone number?",
		AssistantRules: []Rule{
			{Keywords: []string{"help", "welcome", "order"}, Reply: "Hi, I'd like to order a large pepperoni pizza. How much would that be?"},
			{Keywords: []string{"address", "phone"}, Reply: "Sure, it's 42 Elm Street, and my number is 555-0134."},
		},
		AssistantFallback: "Hi, I'd like to order a large pepperoni pizza. How much would that be?",
	},
	"hotel-booking": {
		CustomerRules: []Rule{
			{Keywords: []string{"room", "book", "reservation"}, Reply: "Certainly! What dates were you thinking of, and would you prefer a standard or deluxe room?"},
			{Keywords: []string{"price", "cost", "rate", "much"}, Reply: "Standard rooms are $120 per night and deluxe rooms are $180 per night."},
		},
		CustomerFallback: "Of course. Could I have your name and a contact number for the reservation?",
		AssistantRules: []Rule{
			{Keywords: []string{"help", "welcome", "reservation"}, Reply: "Hi, I need a room for two nights next weekend. What are your rates?"},
			{Keywords: []string{"standard", "deluxe", "dates"}, Reply: "A standard room sounds fine. Does it include breakfast?"},
		},
		AssistantFallback: "Hi, I need a room for two nights next weekend. What are your rates?",
	},
	"job-interview": {
		CustomerRules: []Rule{
			{Keywords: []string{"experience", "worked", "job"}, Reply: "That's great background. What would you say is your biggest professional strength?"},
			{Keywords: []string{"strength", "good at"}, Reply: "Interesting. And why do you want to work at Brightline Media in particular?"},
		},
		CustomerFallback: "Thanks for sharing that. Could you walk me through a project you're proud of?",
		AssistantRules: []Rule{
			{Keywords: []string{"yourself", "tell me"}, Reply: "Sure! I recently finished my marketing degree and spent a year running social media campaigns for a local nonprofit."},
		},
		AssistantFallback: "Sure! I recently finished my marketing degree and spent a year running social media campaigns for a local nonprofit.",
	},
	"coffee-shop": {
		CustomerRules: []Rule{
			{Keywords: []string{"coffee", "latte", "espresso", "cappuccino", "cold brew"}, Reply: "Sure thing! What size, and would you like it hot or iced?"},
			{Keywords: []string{"size", "small", "medium", "large"}, Reply: "Coming right up. Can I get a name for the order?"},
		},
		CustomerFallback: "No problem. Anything else for you today?",
		AssistantRules: []Rule{
			{Keywords: []string{"get started", "what can"}, Reply: "Hi! Could I get a medium latte with oat milk, please?"},
		},
		AssistantFallback: "Hi! Could I get a medium latte with oat milk, please?",
	},
}
