package game

import "math/rand"

// ReflectionPrompts is the fallback rotation used when the host starts a
// round without supplying a prompt of their own.
var ReflectionPrompts = []string{
	"Describe a moment this week when you noticed yourself in Emotion Mind. What did it feel like in your body?",
	"What is one situation where you used (or could have used) Wise Mind to make a decision?",
	"Name an emotion you found hard to sit with recently. What urge came with it?",
	"Describe a time you practiced radical acceptance, even partially. What changed?",
	"What self-soothing skill works best for you, and when did you last use it?",
	"Think of a recent interpersonal conflict. What would asking for what you need have looked like?",
}

// ReflectionPromptFor returns the rotation prompt for a round. Rounds are
// 1-based.
func ReflectionPromptFor(round int) string {
	if round < 1 {
		round = 1
	}
	return ReflectionPrompts[(round-1)%len(ReflectionPrompts)]
}

// RacePrompts is the opposite-action catalog. Each entry pairs an emotional
// urge with the actions that count as acting opposite to it.
var RacePrompts = []RacePrompt{
	{
		Emotion:  "Anger",
		Scenario: "Your partner forgot your anniversary",
		Urge:     "Yell at them and storm out",
		CorrectActions: []string{
			"Speak calmly about how you feel",
			"Plan a nice activity together",
			"Give them a hug and say you love them",
			"Write a kind note expressing your feelings",
		},
		Explanation: "When angry, act opposite by being gentle and kind to build connection.",
	},
	{
		Emotion:  "Sadness",
		Scenario: "You failed an important test",
		Urge:     "Stay in bed all day and avoid everyone",
		CorrectActions: []string{
			"Call a friend and talk about it",
			"Go for a walk outside",
			"Do something you enjoy like listening to music",
			"Make plans to study for the next test",
		},
		Explanation: "When sad, act opposite by being active and connecting with others.",
	},
	{
		Emotion:  "Anxiety",
		Scenario: "You have a big presentation tomorrow",
		Urge:     "Cancel the presentation and avoid it",
		CorrectActions: []string{
			"Practice your presentation out loud",
			"Prepare your materials carefully",
			"Talk to someone supportive about your fears",
			"Do relaxation exercises",
		},
		Explanation: "When anxious, act opposite by approaching what you fear rather than avoiding it.",
	},
	{
		Emotion:  "Shame",
		Scenario: "You made a mistake at work",
		Urge:     "Hide and don't tell anyone",
		CorrectActions: []string{
			"Tell your supervisor and ask for help",
			"Share the mistake with a trusted colleague",
			"Learn from it and improve your process",
			"Be kind to yourself about being human",
		},
		Explanation: "When ashamed, act opposite by being open and vulnerable rather than hiding.",
	},
	{
		Emotion:  "Jealousy",
		Scenario: "Your friend got a promotion you wanted",
		Urge:     "Avoid them and talk behind their back",
		CorrectActions: []string{
			"Congratulate them sincerely",
			"Ask them about the new role",
			"Celebrate their success with them",
			"Reflect on your own goals without comparison",
		},
		Explanation: "When jealous, act opposite by sharing in the other person's joy.",
	},
	{
		Emotion:  "Fear",
		Scenario: "You were invited to speak up in a large group",
		Urge:     "Stay silent and look away",
		CorrectActions: []string{
			"Raise your hand and share one thought",
			"Make eye contact and speak slowly",
			"Ask a question out loud",
			"Sit up straight and take the space",
		},
		Explanation: "When afraid, act opposite by approaching and participating rather than shrinking.",
	},
}

// RandomRacePrompt picks uniformly from the catalog.
func RandomRacePrompt() RacePrompt {
	return RacePrompts[rand.Intn(len(RacePrompts))]
}
