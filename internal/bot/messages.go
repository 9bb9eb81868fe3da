package bot

// User-facing texts of the try-on conversation.
const (
	MsgWelcome = "Welcome to the Virtual Try-On bot! Please send a photo of yourself to start the virtual try-on process."

	MsgGarmentPrompt = "Great! Now send the image of the garment you want to try on."

	MsgProcessing = "Please wait, processing..."

	MsgResult = "Here is your virtual try-on result!"

	MsgError = "Sorry, something went wrong with the try-on process."

	MsgRedirectIdle = "Please send your image to start the virtual try-on process."

	MsgCanceled = "Try-on canceled. Send a photo of yourself whenever you want to start again."

	MsgNothingToCancel = "There is nothing to cancel. Send a photo of yourself to start the virtual try-on process."

	MsgHelp = "Send a photo of yourself, then a photo of a garment, and I will show you wearing it.\n\n" +
		"/start - restart the conversation\n" +
		"/cancel - abort the current try-on\n" +
		"/help - show this message"
)
