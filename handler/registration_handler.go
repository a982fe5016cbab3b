package handler

import (
	"github.com/gin-gonic/gin"

	"remindme/dto"
	"remindme/model"
	"remindme/services"
	"remindme/usecase"
	"remindme/utils"
)

func RegistrationHandler(c *gin.Context, userService *usecase.UserService) {
	var user model.User

	if err := c.ShouldBindJSON(&user); err != nil {
		utils.TrackAuthAttempt("failure", "register")
		utils.BadRequest(c, "invalid request")
		return
	}

	if err := userService.CreateUser(c.Request.Context(), &user); err != nil {
		utils.TrackAuthAttempt("failure", "register")
		if err.Error() == "username already exists" {
			utils.Conflict(c, "username already exists")
			return
		}
		utils.BadRequest(c, err.Error())
		return
	}

	token, err := services.GenerateToken(user.UserID)
	if err != nil {
		utils.TrackError("auth", "token_generation")
		utils.InternalError(c, "failed to generate token")
		return
	}

	utils.TrackAuthAttempt("success", "register")
	utils.Created(c, dto.AuthResponse{
		Token:    token,
		UserID:   user.UserID,
		Username: user.Username,
	})
}
