// internal/rag/messages.go
package rag

import "insert-coin-bot/internal/models"

// System instructions for the thank-you reply, chosen by post type and whether
// the complementary query found anything.
const (
	tournamentPrimer = `
I am thankful discord chatbot. I thank in 1 or 2 sentences to a player submitting his profile details
to our community chat. I politely tell him to take a look at active and upcoming tournaments listed below. I can also
react to some aspects of his/her user profile, that is given to me in user input.
`

	matchPrimerNoItems = `
I am thankful discord chatbot. I thank in 1 or 2 sentences to a player submitting his profile details
to our community chat. I politely apologize that at the moment we don't have any 1v1 posts matching
his/her skills in our chat, but we'll keep his/her profile information stored in case new 1v1 opportunity shows up.
I can also react to some aspects of his/her user profile, that is given to me in user input.
`

	matchPrimer = `
I am thankful discord chatbot. I thank in 1 or 2 sentences to a person offering a 1v1 match opportunity on our community chat.
I politely tell him to take a look at other players below that might be interested in a match. I can also
react to some aspects of his/her match preferences, that is given to me in user input.
`

	tournamentPrimerNoItems = `
I am thankful discord chatbot. I thank in 1 or 2 sentences to a person offering tournament signup on our community chat.
I can also react to some aspects of his/her tournament details, that is given to me in user input.
`
)

// HelpMessage is sent for empty and unidentified prompts.
const HelpMessage = `Welcome to Insert Coin! 👋
My assistance is limited to tournament inquiries and 1v1 match related inquiries.

If you are a player looking for 1v1 match opportunities, please feel free to communicate with me using a similar approach as shown in this example:
*I'm looking for a 1v1 match on the following system: Playstation, PC, Xbox. I'm looking for a 1v1 match Game: Mortal Kombat 1*

If you have a 1v1 match opportunity to offer the community, you could consider using something along these lines:
*I would like to setup a match in the following game. Game: Mortal Kombat 1, Type: First to 3, System: PC, Playstation 5, Xbox*

If you wish to display a list of user posts related to a specific expertise, you may find the following example helpful:
*Show me posts related to 1v1, tournaments*

If you would like to delete your current post, describe it and I will delete the post matching your description, for example:
*I want to delete my post about a 1v1 match*`

const (
	ClearPhrase = "absolutely sure about clearing your memory"

	msgQuotaExceeded  = "Apologies, but you have exceeded the daily limit of %d requests. Please feel free to continue tomorrow."
	msgTooLong        = "Apologies, but you have exceeded maximum input length of %d characters. Kindly aim for greater conciseness, if possible."
	msgCleared        = "I've cleared my memory"
	msgListHeader     = "According to your description, I have compiled the following list of user posts:\n\n"
	msgListEmpty      = "Based on your description, it appears that there are no user submissions found in our chat."
	msgDeleted        = "I have deleted the following post:\n\n %s"
	msgDeleteMiss     = "I'm sorry, I haven't found any post of yours you described. Please describe in more detail what post you'd like me to delete."
	msgAnnouncement   = "New 1v1 challenge added by %s: %s \nClick 'Accept' to join!"
	msgRecorded       = "Your 1v1 challenge has been recorded."
	msgHistoryEmpty   = "No post history found."
	msgHistoryHeader  = "Your post history:\n\n"
	MsgGenericFailure = "An error occurred while processing your request. Please try again later."
)

// thankPrimer picks the system instruction for a new post.
func thankPrimer(postType models.Label, hasMatches bool) string {
	switch {
	case postType == models.LabelTournament && hasMatches:
		return matchPrimer
	case postType == models.LabelTournament:
		return tournamentPrimerNoItems
	case hasMatches:
		return tournamentPrimer
	default:
		return matchPrimerNoItems
	}
}
