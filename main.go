package main

import "forumhub/service"

func main() {
	service.Execute()
}
