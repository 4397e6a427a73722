package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the post feed.
	RouteRoot = "/"
	// RouteRegister is the registration route.
	RouteRegister = "/register"
	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RoutePost is the single post route pattern.
	RoutePost = "/post/{postID}"
	// RouteNewPost is the post creation route.
	RouteNewPost = "/new-post"
	// RouteEditPost is the post edit route pattern.
	RouteEditPost = "/edit-post/{postID}"
	// RouteDeletePost is the post deletion route pattern.
	RouteDeletePost = "/delete/{postID}"
	// RouteAbout is the about page route.
	RouteAbout = "/about"
	// RouteContact is the contact page route.
	RouteContact = "/contact"
	// RouteHealth is the health check route.
	RouteHealth = "/health"
)

const (
	redirectRoot     = RouteRoot
	redirectLogin    = RouteLogin
	redirectRegister = RouteRegister
	redirectContact  = RouteContact
	redirectNewPost  = RouteNewPost
	redirectPostID   = "/post/%d"
	redirectEditID   = "/edit-post/%d"
)

// SessionKeyUserID is the session key for storing the authenticated user ID.
const SessionKeyUserID = "user_id"
